// Package geom implements the pure geometric transforms applied to corpus
// images: edge crops without resize-back and horizontal flips.
//
// Every function returns a freshly allocated image and never mutates its input.
package geom

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

var (
	// ErrNegativeMargin is returned when a crop margin is below zero.
	ErrNegativeMargin = errors.New("geom: negative crop margin")
	// ErrEmptyCrop is returned when the margins leave no pixels.
	ErrEmptyCrop = errors.New("geom: crop leaves an empty image")
)

// Margins holds pixel counts removed from each edge.
type Margins struct {
	Top, Right, Bottom, Left int
}

func (m Margins) String() string {
	return fmt.Sprintf("top=%d right=%d bottom=%d left=%d", m.Top, m.Right, m.Bottom, m.Left)
}

// Bias selects which edges a crop trims.
type Bias int

const (
	// BiasNone trims nothing.
	BiasNone Bias = iota
	// BiasTopRight trims the top and right edges.
	BiasTopRight
	// BiasTopLeft trims the top and left edges.
	BiasTopLeft
	// BiasBottomRight trims the bottom and right edges.
	BiasBottomRight
	// BiasBottomLeft trims the bottom and left edges.
	BiasBottomLeft
	// BiasCenter trims all four edges.
	BiasCenter
)

var biasNames = map[Bias]string{
	BiasNone:        "none",
	BiasTopRight:    "top_right",
	BiasTopLeft:     "top_left",
	BiasBottomRight: "bottom_right",
	BiasBottomLeft:  "bottom_left",
	BiasCenter:      "center",
}

func (b Bias) String() string {
	if name, ok := biasNames[b]; ok {
		return name
	}
	return fmt.Sprintf("bias(%d)", int(b))
}

// MarginPixels returns floor(p * dim).
func MarginPixels(p float64, dim int) int {
	return int(math.Floor(p * float64(dim)))
}

// Uniform returns margins trimming floor(p*H) from top and bottom and floor(p*W)
// from left and right.
func Uniform(p float64, bounds image.Rectangle) Margins {
	return ForBias(BiasCenter, p, bounds)
}

// ForBias returns the margins a bias trims for fraction p. Edges not selected by
// the bias are left at zero.
func ForBias(b Bias, p float64, bounds image.Rectangle) Margins {
	v := MarginPixels(p, bounds.Dy())
	h := MarginPixels(p, bounds.Dx())
	switch b {
	case BiasTopRight:
		return Margins{Top: v, Right: h}
	case BiasTopLeft:
		return Margins{Top: v, Left: h}
	case BiasBottomRight:
		return Margins{Right: h, Bottom: v}
	case BiasBottomLeft:
		return Margins{Bottom: v, Left: h}
	case BiasCenter:
		return Margins{Top: v, Right: h, Bottom: v, Left: h}
	default:
		return Margins{}
	}
}

// Crop removes the margins from src. The result starts at the origin and is
// (W-Left-Right) x (H-Top-Bottom) pixels.
func Crop(src *image.RGBA, m Margins) (*image.RGBA, error) {
	if m.Top < 0 || m.Right < 0 || m.Bottom < 0 || m.Left < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeMargin, m)
	}
	b := src.Bounds()
	r := image.Rect(b.Min.X+m.Left, b.Min.Y+m.Top, b.Max.X-m.Right, b.Max.Y-m.Bottom)
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d with %s", ErrEmptyCrop, b.Dx(), b.Dy(), m)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, src, r, draw.Src, nil)
	return dst, nil
}

// FlipHorizontal mirrors src left to right. FlipHorizontal(FlipHorizontal(x))
// reproduces x pixel for pixel.
func FlipHorizontal(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		drow := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			copy(drow[(w-1-x)*4:(w-x)*4], srow[x*4:x*4+4])
		}
	}
	return dst
}

// Recipe describes a composed transform: an optional biased crop followed by an
// optional horizontal flip.
type Recipe struct {
	Bias Bias
	Flip bool
}

// Apply runs the recipe against src. The crop is always computed from the
// unflipped source and applied before the flip.
func Apply(src *image.RGBA, p float64, r Recipe) (*image.RGBA, error) {
	out := src
	if r.Bias != BiasNone {
		cropped, err := Crop(src, ForBias(r.Bias, p, src.Bounds()))
		if err != nil {
			return nil, err
		}
		out = cropped
	}
	if r.Flip {
		return FlipHorizontal(out), nil
	}
	if out == src {
		return clone(src), nil
	}
	return out, nil
}

func clone(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
	return dst
}
