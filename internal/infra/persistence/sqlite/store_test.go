package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"corpusprep/internal/ledger"
)

func TestStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	store, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	run, err := store.BeginRun(ctx, "partition")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	gen, err := store.NewGeneration(ctx, "train", run.ID)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := store.RecordStage(ctx, ledger.StageRecord{RunID: run.ID, Stage: "partition", Processed: 3, Skipped: 1,
		Failures: []ledger.Failure{{Key: "train/bad.jpg", Kind: "parse", Message: "no label"}}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.MarkCropped(ctx, "train", gen.Number, run.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := store.FinishRun(ctx, run.ID, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	runs, _ := reloaded.Runs(ctx)
	if len(runs) != 1 || runs[0].Status != ledger.StatusSucceeded {
		t.Fatalf("unexpected runs %+v", runs)
	}
	stages, err := reloaded.Stages(ctx, run.ID)
	if err != nil || len(stages) != 1 || len(stages[0].Failures) != 1 {
		t.Fatalf("unexpected stages %+v %v", stages, err)
	}
	g, err := reloaded.Generation(ctx, "train")
	if err != nil || !g.Cropped || g.Number != 1 {
		t.Fatalf("unexpected generation %+v %v", g, err)
	}
	if err := reloaded.MarkCropped(ctx, "train", 1, "other"); !errors.Is(err, ledger.ErrAlreadyCropped) {
		t.Fatalf("expected already cropped after reload, got %v", err)
	}
	if reloaded.Path() != path {
		t.Fatalf("path mismatch %s", reloaded.Path())
	}
}

func TestStoreCreatesStateTable(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	var name string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", "state").Scan(&name); err != nil {
		t.Fatalf("lookup state table: %v", err)
	}
}

func TestInterruptedCropSurvivesReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	gen, err := store.NewGeneration(ctx, "validation", "r1")
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := store.BeginCrop(ctx, "validation", gen.Number, "r2"); err != nil {
		t.Fatalf("begin crop: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	g, err := reloaded.Generation(ctx, "validation")
	if err != nil || !g.Interrupted() || g.CropStartedBy != "r2" {
		t.Fatalf("expected interrupted generation after reload, got %+v %v", g, err)
	}
}
