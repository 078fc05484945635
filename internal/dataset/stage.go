package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"go.uber.org/zap"

	"corpusprep/internal/blob"
	"corpusprep/internal/imaging"
	"corpusprep/internal/logging"
	"corpusprep/internal/metrics"
)

// Options are shared by every stage.
type Options struct {
	Logger  *zap.Logger
	Metrics metrics.Recorder
	// Workers bounds per-image parallelism; 0 or 1 runs sequentially.
	Workers int
	Codec   imaging.Codec
}

func (o Options) logger() *zap.Logger        { return logging.OrNop(o.Logger) }
func (o Options) recorder() metrics.Recorder { return metrics.OrNop(o.Metrics) }

// errMissing marks an expected input that does not exist.
var errMissing = errors.New("missing")

// process runs fn over keys and folds the outcomes into a Summary. fn returns
// nil on success, a *FileError to skip the key, errMissing for an absent
// input, or any other error to abort the stage.
func (o Options) process(ctx context.Context, stage string, keys []string, fn func(ctx context.Context, key string) error) (Summary, error) {
	start := time.Now()
	log := o.logger().With(zap.String("stage", stage))
	rec := o.recorder()
	t := &tally{sum: Summary{Stage: stage}}
	err := forEach(ctx, o.Workers, keys, func(ctx context.Context, key string) error {
		err := fn(ctx, key)
		var fe *FileError
		switch {
		case err == nil:
			t.processed()
			rec.File(stage, metrics.OutcomeProcessed)
		case errors.Is(err, errMissing):
			t.missing()
			rec.File(stage, metrics.OutcomeMissing)
			log.Warn("missing input", zap.String("key", key))
		case errors.As(err, &fe):
			t.skipped(fe)
			rec.File(stage, metrics.OutcomeSkipped)
			log.Warn("skipping file", zap.String("key", fe.Key), zap.String("kind", string(fe.Kind)), zap.Error(fe.Err))
		default:
			return err
		}
		return nil
	})
	sum := t.result()
	sum.Duration = time.Since(start)
	rec.StageDuration(stage, sum.Duration)
	return sum, err
}

// readBytes fetches a whole blob.
func readBytes(ctx context.Context, store blob.Store, key string) ([]byte, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	return b, nil
}

// readRGB fetches and decodes key into a 3-channel image.
func readRGB(ctx context.Context, store blob.Store, key string) (*image.RGBA, error) {
	b, err := readBytes(ctx, store, key)
	if err != nil {
		return nil, err
	}
	img, _, err := imaging.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, &IOError{Op: "decode", Err: err}
	}
	return imaging.ToRGB(img), nil
}

// writeImage encodes img in the format implied by key and commits it,
// replacing any existing blob. Keys whose format cannot hold RGB are a
// ShapeError and nothing is written.
func (o Options) writeImage(ctx context.Context, store blob.Store, key string, img image.Image) error {
	if f, err := imaging.FormatFromName(key); err == nil && !f.StoresRGB() {
		return &ShapeError{Reason: fmt.Sprintf("%s cannot store 3-channel RGB", f)}
	}
	b, f, err := o.Codec.EncodeBytes(img, key)
	if err != nil {
		return &IOError{Op: "encode", Err: err}
	}
	if _, err := store.Put(ctx, key, bytes.NewReader(b), blob.PutOptions{ContentType: f.ContentType(), Replace: true}); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// listImages returns the image keys under dir in key order. With direct set
// only immediate children are returned.
func listImages(ctx context.Context, store blob.Store, dir string, direct bool) ([]string, error) {
	infos, err := store.List(ctx, dir)
	if err != nil {
		return nil, &DirError{Dir: dir, Op: "list", Err: err}
	}
	if direct {
		infos = blob.Children(infos, dir)
	}
	keys := make([]string, 0, len(infos))
	for _, inf := range infos {
		if imaging.IsImageName(inf.Key) {
			keys = append(keys, inf.Key)
		}
	}
	return keys, nil
}
