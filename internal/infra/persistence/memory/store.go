// Package memory is the in-process ledger. The sqlite and postgres backends
// wrap it and persist a snapshot after every mutation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"corpusprep/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// PersistFunc saves the state after a mutation. A failing persist rolls the
// mutation back.
type PersistFunc func(ctx context.Context, snap ledger.Snapshot) error

// Option configures a Store.
type Option func(*Store)

// WithPersist installs a snapshot hook.
func WithPersist(fn PersistFunc) Option { return func(s *Store) { s.persist = fn } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithIDs overrides run id generation.
func WithIDs(next func() string) Option { return func(s *Store) { s.newID = next } }

// Store keeps the ledger in memory.
type Store struct {
	mu      sync.Mutex
	state   ledger.Snapshot
	persist PersistFunc
	now     func() time.Time
	newID   func() string
}

// NewStore returns an empty ledger.
func NewStore(opts ...Option) *Store {
	s := &Store{now: func() time.Time { return time.Now().UTC() }, newID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ImportState replaces the state wholesale.
func (s *Store) ImportState(snap ledger.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = cloneSnapshot(snap)
}

// ExportState returns a deep copy of the state.
func (s *Store) ExportState() ledger.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.state)
}

// mutate applies fn under the lock and persists; on persist failure the
// previous state is restored.
func (s *Store) mutate(ctx context.Context, fn func(st *ledger.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := cloneSnapshot(s.state)
	if err := fn(&s.state); err != nil {
		s.state = before
		return err
	}
	if s.persist != nil {
		if err := s.persist(ctx, cloneSnapshot(s.state)); err != nil {
			s.state = before
			return fmt.Errorf("persist ledger: %w", err)
		}
	}
	return nil
}

func (s *Store) BeginRun(ctx context.Context, command string) (ledger.Run, error) {
	run := ledger.Run{ID: s.newID(), Command: command, Status: ledger.StatusRunning, StartedAt: s.now()}
	err := s.mutate(ctx, func(st *ledger.Snapshot) error {
		st.Runs = append(st.Runs, run)
		return nil
	})
	return run, err
}

func (s *Store) RecordStage(ctx context.Context, rec ledger.StageRecord) error {
	return s.mutate(ctx, func(st *ledger.Snapshot) error {
		if findRun(st, rec.RunID) < 0 {
			return fmt.Errorf("%w: %s", ledger.ErrUnknownRun, rec.RunID)
		}
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = s.now()
		}
		rec.Failures = append([]ledger.Failure(nil), rec.Failures...)
		st.Stages = append(st.Stages, rec)
		return nil
	})
}

func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	return s.mutate(ctx, func(st *ledger.Snapshot) error {
		i := findRun(st, runID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ledger.ErrUnknownRun, runID)
		}
		st.Runs[i].FinishedAt = s.now()
		st.Runs[i].Status = ledger.StatusSucceeded
		if runErr != nil {
			st.Runs[i].Status = ledger.StatusFailed
			st.Runs[i].Error = runErr.Error()
		}
		return nil
	})
}

func (s *Store) NewGeneration(ctx context.Context, split, runID string) (ledger.Generation, error) {
	var gen ledger.Generation
	err := s.mutate(ctx, func(st *ledger.Snapshot) error {
		next := 1
		if i := latest(st, split); i >= 0 {
			next = st.Generations[i].Number + 1
		}
		gen = ledger.Generation{Split: split, Number: next, RunID: runID, CreatedAt: s.now()}
		st.Generations = append(st.Generations, gen)
		return nil
	})
	return gen, err
}

func (s *Store) Generation(_ context.Context, split string) (ledger.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := latest(&s.state, split)
	if i < 0 {
		return ledger.Generation{}, fmt.Errorf("%w: %s", ledger.ErrNoGeneration, split)
	}
	return s.state.Generations[i], nil
}

func (s *Store) BeginCrop(ctx context.Context, split string, number int, runID string) error {
	return s.mutate(ctx, func(st *ledger.Snapshot) error {
		g, err := current(st, split, number)
		if err != nil {
			return err
		}
		g.CropStarted = true
		g.CropStartedBy = runID
		return nil
	})
}

func (s *Store) MarkCropped(ctx context.Context, split string, number int, runID string) error {
	return s.mutate(ctx, func(st *ledger.Snapshot) error {
		g, err := current(st, split, number)
		if err != nil {
			return err
		}
		if g.Cropped {
			return fmt.Errorf("%w: %s generation %d by run %s", ledger.ErrAlreadyCropped, split, number, g.CroppedBy)
		}
		g.Cropped = true
		g.CroppedBy = runID
		return nil
	})
}

func (s *Store) Stages(_ context.Context, runID string) ([]ledger.StageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if findRun(&s.state, runID) < 0 {
		return nil, fmt.Errorf("%w: %s", ledger.ErrUnknownRun, runID)
	}
	var out []ledger.StageRecord
	for _, rec := range s.state.Stages {
		if rec.RunID == runID {
			rec.Failures = append([]ledger.Failure(nil), rec.Failures...)
			out = append(out, rec)
		}
	}
	return out, nil
}

// Runs returns runs ordered by start time.
func (s *Store) Runs(context.Context) ([]ledger.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]ledger.Run(nil), s.state.Runs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *Store) Close() error { return nil }

func findRun(st *ledger.Snapshot, id string) int {
	for i := range st.Runs {
		if st.Runs[i].ID == id {
			return i
		}
	}
	return -1
}

func latest(st *ledger.Snapshot, split string) int {
	idx := -1
	for i := range st.Generations {
		g := st.Generations[i]
		if g.Split == split && (idx < 0 || g.Number > st.Generations[idx].Number) {
			idx = i
		}
	}
	return idx
}

// current returns the latest generation of split, which must be number.
func current(st *ledger.Snapshot, split string, number int) (*ledger.Generation, error) {
	i := latest(st, split)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ledger.ErrNoGeneration, split)
	}
	g := &st.Generations[i]
	if g.Number != number {
		return nil, fmt.Errorf("%w: %s generation %d, latest is %d", ledger.ErrStaleGeneration, split, number, g.Number)
	}
	return g, nil
}

func cloneSnapshot(in ledger.Snapshot) ledger.Snapshot {
	out := ledger.Snapshot{
		Runs:        append([]ledger.Run(nil), in.Runs...),
		Generations: append([]ledger.Generation(nil), in.Generations...),
		Stages:      make([]ledger.StageRecord, len(in.Stages)),
	}
	for i, rec := range in.Stages {
		rec.Failures = append([]ledger.Failure(nil), rec.Failures...)
		out.Stages[i] = rec
	}
	if len(in.Stages) == 0 {
		out.Stages = nil
	}
	return out
}
