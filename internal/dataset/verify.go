package dataset

import (
	"context"
	"sort"

	"corpusprep/internal/blob"
	"corpusprep/internal/views"
)

// VerifyReport lists source images whose views are incomplete.
type VerifyReport struct {
	Complete int
	// Incomplete maps a source file name to the views it lacks.
	Incomplete map[string][]string
}

// OK reports whether every source image has every view.
func (r VerifyReport) OK() bool { return len(r.Incomplete) == 0 }

// VerifyViews checks that every image directly under testDir in src has all
// views under viewsDir in dst.
func VerifyViews(ctx context.Context, src blob.Store, testDir string, dst blob.Store, viewsDir string) (VerifyReport, error) {
	report := VerifyReport{Incomplete: map[string][]string{}}
	keys, err := listImages(ctx, src, testDir, true)
	if err != nil {
		return report, err
	}
	present := map[string]map[string]struct{}{}
	for _, v := range views.Table {
		dir := v.Dir(viewsDir)
		infos, err := dst.List(ctx, dir)
		if err != nil {
			return report, &DirError{Dir: dir, Op: "list", Err: err}
		}
		names := make(map[string]struct{}, len(infos))
		for _, inf := range blob.Children(infos, dir) {
			names[blob.Base(inf.Key)] = struct{}{}
		}
		present[v.Name] = names
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		name := blob.Base(key)
		var missing []string
		for _, v := range views.Table {
			if _, ok := present[v.Name][name]; !ok {
				missing = append(missing, v.Name)
			}
		}
		if len(missing) == 0 {
			report.Complete++
			continue
		}
		sort.Strings(missing)
		report.Incomplete[name] = missing
	}
	return report, nil
}
