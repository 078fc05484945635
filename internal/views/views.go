// Package views defines the fixed set of test-time augmentation views and the
// directory layout they are written to.
//
// The names and their directories are consumed by the ensembling step, which
// aligns predictions across views by file name. They must never change.
package views

import (
	"path"

	"corpusprep/internal/geom"
)

// View is one named test-time transform.
type View struct {
	Name   string
	Recipe geom.Recipe
}

// Table lists every view in the order it is generated.
var Table = []View{
	{Name: "flip", Recipe: geom.Recipe{Bias: geom.BiasNone, Flip: true}},
	{Name: "top_right", Recipe: geom.Recipe{Bias: geom.BiasTopRight}},
	{Name: "top_right_flip", Recipe: geom.Recipe{Bias: geom.BiasTopRight, Flip: true}},
	{Name: "top_left", Recipe: geom.Recipe{Bias: geom.BiasTopLeft}},
	{Name: "top_left_flip", Recipe: geom.Recipe{Bias: geom.BiasTopLeft, Flip: true}},
	{Name: "bottom_right", Recipe: geom.Recipe{Bias: geom.BiasBottomRight}},
	{Name: "bottom_right_flip", Recipe: geom.Recipe{Bias: geom.BiasBottomRight, Flip: true}},
	{Name: "bottom_left", Recipe: geom.Recipe{Bias: geom.BiasBottomLeft}},
	{Name: "bottom_left_flip", Recipe: geom.Recipe{Bias: geom.BiasBottomLeft, Flip: true}},
	{Name: "center", Recipe: geom.Recipe{Bias: geom.BiasCenter}},
	{Name: "center_flip", Recipe: geom.Recipe{Bias: geom.BiasCenter, Flip: true}},
}

// Names returns the view names in generation order.
func Names() []string {
	out := make([]string, len(Table))
	for i, v := range Table {
		out[i] = v.Name
	}
	return out
}

// Lookup returns the view with the given name.
func Lookup(name string) (View, bool) {
	for _, v := range Table {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// Dir returns the directory a view is written to under root. The view
// directory is nested one extra level under its own name so that class-folder
// loaders see each view as a single-class dataset.
func (v View) Dir(root string) string {
	return path.Join(root, v.Name, v.Name)
}

// Key returns the output key for a source file name.
func (v View) Key(root, name string) string {
	return path.Join(v.Dir(root), path.Base(name))
}

// Locate returns the output key of every view for one source file name, keyed
// by view name.
func Locate(root, name string) map[string]string {
	out := make(map[string]string, len(Table))
	for _, v := range Table {
		out[v.Name] = v.Key(root, name)
	}
	return out
}
