package dataset

import (
	"context"
	"strings"

	"corpusprep/internal/blob"
	"corpusprep/internal/imaging"
	"corpusprep/internal/label"
)

// Sample is one image of a partitioned split.
type Sample struct {
	Key   string      `json:"key"`
	Label label.Label `json:"label"`
	// Class is the 0-based index consumed by training code.
	Class int `json:"class"`
}

// Index enumerates <split>/<label>/<file> in key order. Entries outside a
// numeric class directory are ignored.
func Index(ctx context.Context, store blob.Store, split string) ([]Sample, error) {
	infos, err := store.List(ctx, split)
	if err != nil {
		return nil, &DirError{Dir: split, Op: "list", Err: err}
	}
	prefix := strings.Trim(split, "/") + "/"
	var out []Sample
	for _, inf := range infos {
		rel := strings.TrimPrefix(inf.Key, prefix)
		dir, file, ok := strings.Cut(rel, "/")
		if !ok || strings.Contains(file, "/") || !imaging.IsImageName(file) {
			continue
		}
		l, err := label.FromDir(dir)
		if err != nil {
			continue
		}
		out = append(out, Sample{Key: inf.Key, Label: l, Class: l.Index()})
	}
	return out, nil
}

// ClassCounts tallies samples per label.
func ClassCounts(samples []Sample) map[label.Label]int {
	out := make(map[label.Label]int)
	for _, s := range samples {
		out[s.Label]++
	}
	return out
}
