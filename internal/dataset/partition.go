package dataset

import (
	"bytes"
	"context"
	"path"
	"sort"

	"go.uber.org/zap"

	"corpusprep/internal/blob"
	"corpusprep/internal/label"
)

// Partitioner copies a flat split directory of `<prefix>_<label>.<ext>` files
// into one directory per label. Running it twice over the same input yields
// the same tree.
type Partitioner struct {
	Options
	Source blob.Store
	Target blob.Store
}

// Partition materializes target <split>/<label>/<name> from source <split>/<name>.
// Every class directory is reconciled before the first copy.
func (p *Partitioner) Partition(ctx context.Context, split string) (Summary, error) {
	log := p.logger().With(zap.String("split", split))
	infos, err := p.Source.List(ctx, split)
	if err != nil {
		return Summary{Stage: "partition"}, &DirError{Dir: split, Op: "list", Err: err}
	}
	files := blob.Children(infos, split)
	log.Info("split census", zap.Int("files", len(files)))

	labels := make(map[string]label.Label, len(files))
	seen := map[label.Label]struct{}{}
	keys := make([]string, 0, len(files))
	for _, inf := range files {
		keys = append(keys, inf.Key)
		l, err := label.Parse(inf.Key)
		if err != nil {
			continue
		}
		labels[inf.Key] = l
		seen[l] = struct{}{}
	}

	classes := make([]label.Label, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	dirs := make([]string, len(classes))
	for i, l := range classes {
		dirs[i] = path.Join(split, l.String())
	}
	if err := (Reconciler{Store: p.Target, Logger: p.Logger}).Reconcile(ctx, dirs...); err != nil {
		return Summary{Stage: "partition"}, err
	}
	log.Info("class directories ready", zap.Int("classes", len(dirs)))

	return p.process(ctx, "partition", keys, func(ctx context.Context, key string) error {
		l, ok := labels[key]
		if !ok {
			_, err := label.Parse(key)
			return fileError(key, err)
		}
		b, err := readBytes(ctx, p.Source, key)
		if err != nil {
			return fileError(key, err)
		}
		dst := path.Join(split, l.String(), blob.Base(key))
		if _, err := p.Target.Put(ctx, dst, bytes.NewReader(b), blob.PutOptions{Replace: true}); err != nil {
			return fileError(key, &IOError{Op: "write", Err: err})
		}
		return nil
	})
}
