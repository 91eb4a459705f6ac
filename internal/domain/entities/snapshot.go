package entities

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable, fully loaded copy of the facility dataset.
// Nothing may modify a snapshot after it has been published.
type Snapshot struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	LoadedAt   time.Time  `json:"loaded_at"`
	Facilities []Facility `json:"-"`

	columns map[string]struct{}
}

// NewSnapshot creates a snapshot with a fresh ID. columns lists the dataset
// columns the source actually provided.
func NewSnapshot(source string, facilities []Facility, columns []string) *Snapshot {
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return &Snapshot{
		ID:         uuid.NewString(),
		Source:     source,
		Facilities: facilities,
		columns:    set,
	}
}

// HasColumn reports whether the source provided the named column.
func (s *Snapshot) HasColumn(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.columns[name]
	return ok
}

// Columns returns the provided columns in sorted order.
func (s *Snapshot) Columns() []string {
	out := make([]string, 0, len(s.columns))
	for c := range s.columns {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// LocatedCount returns how many facilities carry both coordinates.
func (s *Snapshot) LocatedCount() int {
	n := 0
	for i := range s.Facilities {
		if s.Facilities[i].Located() {
			n++
		}
	}
	return n
}
