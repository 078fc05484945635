package dataset

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"corpusprep/internal/blob"
	"corpusprep/internal/ledger"
)

// Step names a pipeline stage.
type Step string

const (
	StepPartition Step = "partition"
	StepCrop      Step = "crop"
	StepNormalize Step = "normalize"
	StepTTA       Step = "tta"
)

// Pipeline is the full run in its required order.
var Pipeline = []Step{StepPartition, StepCrop, StepNormalize, StepTTA}

// DefaultSplits are the labelled splits.
var DefaultSplits = []string{"train", "validation"}

// Runner wires the stages to the stores and the ledger. Source holds the raw
// corpus (flat splits and the test directory); Target receives the class
// tree and the view tree.
type Runner struct {
	Options
	Source   blob.Store
	Target   blob.Store
	Ledger   ledger.Store
	Fraction float64
	Splits   []string
	TestDir  string
	// TestCount > 0 normalizes ids 1..TestCount named <id><TestExt>.
	TestCount int
	TestExt   string
	// Force crops generations that were already cropped or whose crop was
	// interrupted.
	Force bool
}

func (r *Runner) splits() []string {
	if len(r.Splits) == 0 {
		return DefaultSplits
	}
	return r.Splits
}

func (r *Runner) testDir() string {
	if r.TestDir == "" {
		return "test"
	}
	return r.TestDir
}

// Execute records a run named command in the ledger and performs steps in
// order, stopping at the first fatal error.
func (r *Runner) Execute(ctx context.Context, command string, steps ...Step) ([]Summary, error) {
	run, err := r.Ledger.BeginRun(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	log := r.logger().With(zap.String("run", run.ID))
	log.Info("run started", zap.String("command", command))
	var out []Summary
	var runErr error
	for _, step := range steps {
		var sum Summary
		sum, runErr = r.step(ctx, run.ID, step)
		sum.Stage = string(step)
		out = append(out, sum)
		// record whatever was done, even for a failing stage
		if err := r.Ledger.RecordStage(context.WithoutCancel(ctx), sum.Record(run.ID)); err != nil {
			log.Error("record stage", zap.Error(err))
		}
		if runErr != nil {
			runErr = fmt.Errorf("%s: %w", step, runErr)
			break
		}
		log.Info("stage finished", zap.String("stage", string(step)), zap.Int("processed", sum.Processed),
			zap.Int("skipped", sum.Skipped), zap.Int("missing", sum.Missing), zap.Duration("duration", sum.Duration))
	}
	if err := r.Ledger.FinishRun(context.WithoutCancel(ctx), run.ID, runErr); err != nil {
		log.Error("finish run", zap.Error(err))
	}
	return out, runErr
}

func (r *Runner) step(ctx context.Context, runID string, s Step) (Summary, error) {
	switch s {
	case StepPartition:
		return r.Partition(ctx, runID)
	case StepCrop:
		return r.Crop(ctx, runID)
	case StepNormalize:
		return r.NormalizeTest(ctx)
	case StepTTA:
		return r.TTA(ctx)
	}
	return Summary{}, fmt.Errorf("unknown step %q", s)
}

// Partition partitions every split and opens a new corpus generation for each.
func (r *Runner) Partition(ctx context.Context, runID string) (Summary, error) {
	total := Summary{Stage: string(StepPartition)}
	p := &Partitioner{Options: r.Options, Source: r.Source, Target: r.Target}
	for _, split := range r.splits() {
		sum, err := p.Partition(ctx, split)
		total.Add(sum)
		if err != nil {
			return total, err
		}
		gen, err := r.Ledger.NewGeneration(ctx, split, runID)
		if err != nil {
			return total, fmt.Errorf("open generation for %s: %w", split, err)
		}
		r.logger().Info("split partitioned", zap.String("split", split), zap.Int("generation", gen.Number),
			zap.Int("processed", sum.Processed), zap.Int("skipped", sum.Skipped))
	}
	return total, nil
}

// Crop crop-augments every split at most once per generation. Splits whose
// generation is already cropped are skipped; the stage fails only when every
// split was. A generation whose crop was interrupted is left alone, because
// some of its images are already cropped. Force overrides both guards.
func (r *Runner) Crop(ctx context.Context, runID string) (Summary, error) {
	total := Summary{Stage: string(StepCrop)}
	a := &CropAugmentor{Options: r.Options, Fraction: r.Fraction}
	log := r.logger()
	var blocked []error
	done := 0
	for _, split := range r.splits() {
		gen, err := r.Ledger.Generation(ctx, split)
		if errors.Is(err, ledger.ErrNoGeneration) {
			log.Warn("no recorded generation, opening one", zap.String("split", split))
			gen, err = r.Ledger.NewGeneration(ctx, split, runID)
		}
		if err != nil {
			return total, err
		}
		if !r.Force {
			if gen.Cropped {
				log.Info("split already cropped, skipping", zap.String("split", split),
					zap.Int("generation", gen.Number), zap.String("cropped_by", gen.CroppedBy))
				done++
				continue
			}
			if gen.Interrupted() {
				log.Error("earlier crop did not finish", zap.String("split", split),
					zap.Int("generation", gen.Number), zap.String("started_by", gen.CropStartedBy))
				blocked = append(blocked, fmt.Errorf("%s generation %d: %w", split, gen.Number, ledger.ErrCropInterrupted))
				continue
			}
		}
		if err := r.Ledger.BeginCrop(ctx, split, gen.Number, runID); err != nil {
			return total, err
		}
		sum, err := a.Augment(ctx, r.Target, split)
		total.Add(sum)
		if err != nil {
			return total, err
		}
		// every image is cropped; record it even if ctx was cancelled just now
		err = r.Ledger.MarkCropped(context.WithoutCancel(ctx), split, gen.Number, runID)
		if err != nil && !(r.Force && errors.Is(err, ledger.ErrAlreadyCropped)) {
			return total, err
		}
	}
	if len(blocked) > 0 {
		return total, fmt.Errorf("%w (re-partition or pass --force)", errors.Join(blocked...))
	}
	if done == len(r.splits()) {
		return total, fmt.Errorf("every split: %w (re-partition or pass --force)", ledger.ErrAlreadyCropped)
	}
	return total, nil
}

// NormalizeTest converts the raw test images to RGB in place.
func (r *Runner) NormalizeTest(ctx context.Context) (Summary, error) {
	n := &Normalizer{Options: r.Options}
	if r.TestCount > 0 {
		return n.NormalizeRange(ctx, r.Source, r.testDir(), 1, r.TestCount, r.TestExt)
	}
	return n.Normalize(ctx, r.Source, r.testDir())
}

// NormalizeTarget converts images under dirs of the target tree.
func (r *Runner) NormalizeTarget(ctx context.Context, dirs ...string) (Summary, error) {
	n := &Normalizer{Options: r.Options}
	total := Summary{Stage: string(StepNormalize)}
	for _, dir := range dirs {
		sum, err := n.Normalize(ctx, r.Target, dir)
		total.Add(sum)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// TTA writes the view tree for the test directory.
func (r *Runner) TTA(ctx context.Context) (Summary, error) {
	g := &ViewGenerator{Options: r.Options, Fraction: r.Fraction}
	return g.Generate(ctx, r.Source, r.testDir(), r.Target, r.testDir())
}

// Verify checks the view tree against the raw test directory.
func (r *Runner) Verify(ctx context.Context) (VerifyReport, error) {
	return VerifyViews(ctx, r.Source, r.testDir(), r.Target, r.testDir())
}
