// Package ledger records pipeline runs, per-stage summaries and corpus
// generations. Generations guard the destructive crop stage: each
// partitioning of a split opens a new generation, and a generation may be
// cropped at most once.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Driver identifies a ledger backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

var (
	ErrUnknownRun      = errors.New("ledger: unknown run")
	ErrNoGeneration    = errors.New("ledger: no generation recorded for split")
	ErrAlreadyCropped  = errors.New("ledger: generation already cropped")
	ErrStaleGeneration = errors.New("ledger: generation superseded")
	// ErrCropInterrupted reports a generation whose crop started but never
	// finished: some of its images may already be cropped.
	ErrCropInterrupted = errors.New("ledger: crop of generation was interrupted")
)

// Run status values.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Failure is a per-file problem that was skipped.
type Failure struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type StageRecord struct {
	RunID      string        `json:"run_id"`
	Stage      string        `json:"stage"`
	Processed  int           `json:"processed"`
	Skipped    int           `json:"skipped"`
	Missing    int           `json:"missing"`
	Failures   []Failure     `json:"failures,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Generation is one materialization of a split's class tree.
type Generation struct {
	Split     string    `json:"split"`
	Number    int       `json:"number"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	// CropStarted is set before the first image is cropped. CropStarted
	// without Cropped means an earlier crop did not finish.
	CropStarted   bool   `json:"crop_started,omitempty"`
	CropStartedBy string `json:"crop_started_by,omitempty"`
	Cropped       bool   `json:"cropped"`
	CroppedBy     string `json:"cropped_by,omitempty"`
}

// Interrupted reports whether a crop of g began and never completed.
func (g Generation) Interrupted() bool { return g.CropStarted && !g.Cropped }

// Snapshot is the complete ledger state, used by the persistent backends.
type Snapshot struct {
	Runs        []Run         `json:"runs"`
	Stages      []StageRecord `json:"stages"`
	Generations []Generation  `json:"generations"`
}

// Store is implemented by every backend.
type Store interface {
	BeginRun(ctx context.Context, command string) (Run, error)
	RecordStage(ctx context.Context, rec StageRecord) error
	FinishRun(ctx context.Context, runID string, runErr error) error
	// NewGeneration opens the next generation for split.
	NewGeneration(ctx context.Context, split, runID string) (Generation, error)
	// Generation returns the latest generation or ErrNoGeneration.
	Generation(ctx context.Context, split string) (Generation, error)
	// BeginCrop records that cropping generation number of split is about to
	// start. It fails with ErrStaleGeneration when number is not the latest.
	BeginCrop(ctx context.Context, split string, number int, runID string) error
	// MarkCropped flags generation number of split as cropped. It fails with
	// ErrStaleGeneration when number is not the latest and ErrAlreadyCropped
	// when it was cropped before.
	MarkCropped(ctx context.Context, split string, number int, runID string) error
	Stages(ctx context.Context, runID string) ([]StageRecord, error)
	Runs(ctx context.Context) ([]Run, error)
	Close() error
}
