package dataset

import (
	"context"

	"go.uber.org/zap"

	"corpusprep/internal/blob"
	"corpusprep/internal/geom"
	"corpusprep/internal/views"
)

// ViewGenerator writes one file per test-time augmentation view for every
// source image, keeping the source file name.
type ViewGenerator struct {
	Options
	Fraction float64
	// Views defaults to views.Table.
	Views []views.View
}

func (g *ViewGenerator) table() []views.View {
	if len(g.Views) == 0 {
		return views.Table
	}
	return g.Views
}

// Generate reads the images directly under srcDir in src and writes
// <dstDir>/<view>/<view>/<name> into dst. All view directories are created
// before the first image.
func (g *ViewGenerator) Generate(ctx context.Context, src blob.Store, srcDir string, dst blob.Store, dstDir string) (Summary, error) {
	table := g.table()
	for _, v := range table {
		dir := v.Dir(dstDir)
		if err := dst.EnsurePrefix(ctx, dir); err != nil {
			return Summary{Stage: "tta"}, &DirError{Dir: dir, Op: "create", Err: err}
		}
	}
	keys, err := listImages(ctx, src, srcDir, true)
	if err != nil {
		return Summary{Stage: "tta"}, err
	}
	g.logger().Info("generating views", zap.Int("images", len(keys)), zap.Int("views", len(table)))
	return g.process(ctx, "tta", keys, func(ctx context.Context, key string) error {
		img, err := readRGB(ctx, src, key)
		if err != nil {
			return fileError(key, err)
		}
		name := blob.Base(key)
		for _, v := range table {
			out, err := geom.Apply(img, g.Fraction, v.Recipe)
			if err != nil {
				return fileError(key, &ShapeError{Reason: "view " + v.Name, Err: err})
			}
			if err := g.writeImage(ctx, dst, v.Key(dstDir, name), out); err != nil {
				return fileError(key, err)
			}
		}
		return nil
	})
}
