package dataset

import (
	"context"

	"corpusprep/internal/blob"
	"corpusprep/internal/geom"
)

// CropAugmentor crops floor(Fraction*dim) pixels from every edge of every
// image and writes the result over the original.
//
// The operation is not idempotent: a second pass crops the already cropped
// image again. Callers that can re-run must guard it; Runner does so through
// the ledger's corpus generations.
type CropAugmentor struct {
	Options
	Fraction float64
}

// Augment crops every image under dirs, dir by dir, in key order.
func (a *CropAugmentor) Augment(ctx context.Context, store blob.Store, dirs ...string) (Summary, error) {
	var keys []string
	for _, dir := range dirs {
		k, err := listImages(ctx, store, dir, false)
		if err != nil {
			return Summary{Stage: "crop"}, err
		}
		keys = append(keys, k...)
	}
	return a.process(ctx, "crop", keys, func(ctx context.Context, key string) error {
		img, err := readRGB(ctx, store, key)
		if err != nil {
			return fileError(key, err)
		}
		out, err := geom.Crop(img, geom.Uniform(a.Fraction, img.Bounds()))
		if err != nil {
			return fileError(key, &ShapeError{Reason: "crop", Err: err})
		}
		if err := a.writeImage(ctx, store, key, out); err != nil {
			return fileError(key, err)
		}
		return nil
	})
}
