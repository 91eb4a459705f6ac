package repositories

import (
	"context"

	"github.com/hospitrack/backend/internal/domain/entities"
)

// FacilitySource loads a complete facility dataset snapshot
type FacilitySource interface {
	// LoadSnapshot reads the whole dataset. The returned snapshot is never
	// modified afterwards.
	LoadSnapshot(ctx context.Context) (*entities.Snapshot, error)

	// Name identifies the source in logs and health output
	Name() string
}

// FacilityWriter persists facilities, used by the importer
type FacilityWriter interface {
	// ReplaceAll swaps the stored dataset for facilities
	ReplaceAll(ctx context.Context, facilities []entities.Facility) (int, error)
}
