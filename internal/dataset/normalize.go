package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"go.uber.org/zap"

	"corpusprep/internal/blob"
	"corpusprep/internal/imaging"
)

// Normalizer rewrites every image that does not carry exactly three colour
// channels as RGB. Images that already do are left byte-for-byte untouched.
type Normalizer struct {
	Options
}

// Normalize handles every image under dir.
func (n *Normalizer) Normalize(ctx context.Context, store blob.Store, dir string) (Summary, error) {
	keys, err := listImages(ctx, store, dir, false)
	if err != nil {
		return Summary{Stage: "normalize"}, err
	}
	return n.process(ctx, "normalize", keys, func(ctx context.Context, key string) error {
		return n.normalizeOne(ctx, store, key)
	})
}

// NormalizeRange handles `<dir>/<id><ext>` for id in [first, last]. Absent
// ids are counted as missing.
func (n *Normalizer) NormalizeRange(ctx context.Context, store blob.Store, dir string, first, last int, ext string) (Summary, error) {
	if first > last {
		return Summary{Stage: "normalize"}, fmt.Errorf("empty id range [%d, %d]", first, last)
	}
	keys := make([]string, 0, last-first+1)
	for id := first; id <= last; id++ {
		keys = append(keys, path.Join(dir, strconv.Itoa(id)+ext))
	}
	return n.process(ctx, "normalize", keys, func(ctx context.Context, key string) error {
		if _, err := store.Head(ctx, key); err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				return errMissing
			}
			return fileError(key, &IOError{Op: "read", Err: err})
		}
		return n.normalizeOne(ctx, store, key)
	})
}

func (n *Normalizer) normalizeOne(ctx context.Context, store blob.Store, key string) error {
	b, err := readBytes(ctx, store, key)
	if err != nil {
		return fileError(key, err)
	}
	cfg, _, err := imaging.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return fileError(key, &IOError{Op: "decode", Err: err})
	}
	ch, err := imaging.Channels(cfg.ColorModel)
	if err != nil {
		return fileError(key, &ShapeError{Reason: "unsupported channel layout", Err: err})
	}
	if ch == 3 {
		return nil
	}
	img, _, err := imaging.Decode(bytes.NewReader(b))
	if err != nil {
		return fileError(key, &IOError{Op: "decode", Err: err})
	}
	if err := n.writeImage(ctx, store, key, imaging.ToRGB(img)); err != nil {
		return fileError(key, err)
	}
	n.logger().Debug("converted to rgb", zap.String("key", key), zap.Int("channels", ch))
	return nil
}
