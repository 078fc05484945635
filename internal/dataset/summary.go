package dataset

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"corpusprep/internal/ledger"
)

// Summary is what every stage returns.
type Summary struct {
	Stage     string
	Processed int
	Skipped   int
	// Missing counts expected inputs that did not exist (id-range normalization).
	Missing  int
	Failures []FileError
	Duration time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: processed=%d skipped=%d missing=%d in %s",
		s.Stage, s.Processed, s.Skipped, s.Missing, s.Duration.Round(time.Millisecond))
}

// Add folds o into s, keeping s's stage name.
func (s *Summary) Add(o Summary) {
	s.Processed += o.Processed
	s.Skipped += o.Skipped
	s.Missing += o.Missing
	s.Failures = append(s.Failures, o.Failures...)
	s.Duration += o.Duration
}

// Record converts the summary into a ledger stage record.
func (s Summary) Record(runID string) ledger.StageRecord {
	rec := ledger.StageRecord{
		RunID:     runID,
		Stage:     s.Stage,
		Processed: s.Processed,
		Skipped:   s.Skipped,
		Missing:   s.Missing,
		Duration:  s.Duration,
	}
	for _, f := range s.Failures {
		rec.Failures = append(rec.Failures, ledger.Failure{Key: f.Key, Kind: string(f.Kind), Message: f.Err.Error()})
	}
	return rec
}

// tally accumulates outcomes from concurrent workers.
type tally struct {
	mu  sync.Mutex
	sum Summary
}

func (t *tally) processed() {
	t.mu.Lock()
	t.sum.Processed++
	t.mu.Unlock()
}

func (t *tally) skipped(fe *FileError) {
	t.mu.Lock()
	t.sum.Skipped++
	t.sum.Failures = append(t.sum.Failures, *fe)
	t.mu.Unlock()
}

func (t *tally) missing() {
	t.mu.Lock()
	t.sum.Missing++
	t.mu.Unlock()
}

func (t *tally) result() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.sum
	out.Failures = append([]FileError(nil), t.sum.Failures...)
	sort.SliceStable(out.Failures, func(i, j int) bool { return out.Failures[i].Key < out.Failures[j].Key })
	return out
}
