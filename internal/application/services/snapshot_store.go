package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/domain/repositories"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
	apperrors "github.com/hospitrack/backend/pkg/errors"
)

// SnapshotState is the load state reported by the health endpoint
type SnapshotState string

const (
	SnapshotStarting SnapshotState = "starting"
	SnapshotReady    SnapshotState = "ready"
	SnapshotFailed   SnapshotState = "error"
)

// SnapshotStore owns the current dataset snapshot. Readers get the whole
// snapshot or nothing; a reload publishes a new snapshot with one atomic swap.
type SnapshotStore struct {
	source         repositories.FacilitySource
	clock          clockwork.Clock
	reloadInterval time.Duration
	metrics        *observability.Metrics

	current atomic.Pointer[entities.Snapshot]

	mu      sync.RWMutex
	state   SnapshotState
	lastErr error

	wg sync.WaitGroup
}

// NewSnapshotStore creates a store for source. A zero reloadInterval loads once.
func NewSnapshotStore(source repositories.FacilitySource, clock clockwork.Clock, reloadInterval time.Duration, metrics *observability.Metrics) *SnapshotStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SnapshotStore{
		source:         source,
		clock:          clock,
		reloadInterval: reloadInterval,
		metrics:        metrics,
		state:          SnapshotStarting,
	}
}

// Start loads the dataset in the background and, when a reload interval is
// configured, keeps reloading until ctx is cancelled.
func (s *SnapshotStore) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Load(ctx)

		if s.reloadInterval <= 0 {
			return
		}
		ticker := s.clock.NewTicker(s.reloadInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				_ = s.Load(ctx)
			}
		}
	}()
}

// Wait blocks until the background loader started by Start has exited.
func (s *SnapshotStore) Wait() {
	s.wg.Wait()
}

// Load reads the dataset synchronously and publishes it. A failed reload
// keeps serving the previous snapshot.
func (s *SnapshotStore) Load(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx)
	started := s.clock.Now()

	snap, err := s.source.LoadSnapshot(ctx)
	observability.RecordSnapshotLoad(ctx, s.metrics, s.source.Name(), err)
	if err == nil && snap == nil {
		err = fmt.Errorf("source %s returned no snapshot", s.source.Name())
	}
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		if s.current.Load() == nil {
			s.state = SnapshotFailed
		}
		s.mu.Unlock()

		logger.Error().Err(err).Str("source", s.source.Name()).Msg("failed to load facility dataset")
		return err
	}

	snap.LoadedAt = s.clock.Now()
	s.current.Store(snap)

	s.mu.Lock()
	s.state = SnapshotReady
	s.lastErr = nil
	s.mu.Unlock()

	logger.Info().
		Str("source", s.source.Name()).
		Str("snapshot_id", snap.ID).
		Int("facilities", len(snap.Facilities)).
		Int("located", snap.LocatedCount()).
		Dur("duration", s.clock.Since(started)).
		Msg("facility dataset loaded")
	return nil
}

// Current returns the published snapshot. Before the first successful load
// it returns an UNAVAILABLE error, or INTERNAL if that load failed.
func (s *SnapshotStore) Current() (*entities.Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == SnapshotFailed {
		return nil, apperrors.NewInternalError("facility dataset failed to load", s.lastErr)
	}
	return nil, apperrors.NewUnavailableError("facility dataset is still loading")
}

// Version returns the ID of the published snapshot, or "" before the first load.
func (s *SnapshotStore) Version() string {
	if snap := s.current.Load(); snap != nil {
		return snap.ID
	}
	return ""
}

// Status reports the load state and, if the last load failed, its error.
func (s *SnapshotStore) Status() (SnapshotState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.lastErr
}
