package geom

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpusprep/testutil"
)

// gradient returns a w x h image whose pixels encode their own coordinates.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func TestFlipIsInvolution(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {2, 3}, {17, 9}, {200, 100}} {
		src := gradient(size[0], size[1])
		twice := FlipHorizontal(FlipHorizontal(src))
		assert.Equal(t, src.Pix, twice.Pix, "size %v", size)
		assert.Equal(t, src.Bounds(), twice.Bounds())
	}
}

func TestFlipMirrorsColumns(t *testing.T) {
	src := gradient(5, 2)
	out := FlipHorizontal(src)
	for y := 0; y < 2; y++ {
		for x := 0; x < 5; x++ {
			assert.Equal(t, src.RGBAAt(x, y), out.RGBAAt(4-x, y))
		}
	}
}

func TestFlipOfSubImage(t *testing.T) {
	src := gradient(10, 10).SubImage(image.Rect(2, 3, 6, 5)).(*image.RGBA)
	out := FlipHorizontal(src)
	require.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, src.RGBAAt(2, 3), out.RGBAAt(3, 0))
}

func TestUniformCropDimensions(t *testing.T) {
	for _, p := range []float64{0.05, 0.1, 0.25, 0.33} {
		for _, size := range [][2]int{{200, 100}, {37, 91}, {640, 480}} {
			w, h := size[0], size[1]
			out, err := Crop(gradient(w, h), Uniform(p, image.Rect(0, 0, w, h)))
			require.NoError(t, err)
			assert.Equal(t, w-2*MarginPixels(p, w), out.Bounds().Dx(), "p=%v size=%v", p, size)
			assert.Equal(t, h-2*MarginPixels(p, h), out.Bounds().Dy(), "p=%v size=%v", p, size)
		}
	}
}

func TestCropKeepsPixels(t *testing.T) {
	src := gradient(10, 8)
	out, err := Crop(src, Margins{Top: 1, Right: 2, Bottom: 3, Left: 4})
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	assert.Equal(t, src.RGBAAt(4, 1), out.RGBAAt(0, 0))
	assert.Equal(t, src.RGBAAt(7, 4), out.RGBAAt(3, 3))
}

func TestCropErrors(t *testing.T) {
	src := gradient(4, 4)
	_, err := Crop(src, Margins{Top: -1})
	assert.True(t, errors.Is(err, ErrNegativeMargin))
	_, err = Crop(src, Margins{Left: 2, Right: 2})
	assert.True(t, errors.Is(err, ErrEmptyCrop))
}

func TestForBias(t *testing.T) {
	// 100 rows x 200 columns, p = 0.1
	b := image.Rect(0, 0, 200, 100)
	cases := map[Bias]Margins{
		BiasNone:        {},
		BiasTopRight:    {Top: 10, Right: 20},
		BiasTopLeft:     {Top: 10, Left: 20},
		BiasBottomRight: {Bottom: 10, Right: 20},
		BiasBottomLeft:  {Bottom: 10, Left: 20},
		BiasCenter:      {Top: 10, Right: 20, Bottom: 10, Left: 20},
	}
	for bias, want := range cases {
		assert.Equal(t, want, ForBias(bias, 0.1, b), bias.String())
	}
}

func TestMarginPixelsFloors(t *testing.T) {
	assert.Equal(t, 10, MarginPixels(0.1, 100))
	assert.Equal(t, 3, MarginPixels(0.1, 39))
	assert.Equal(t, 0, MarginPixels(0.1, 9))
}

func TestApplyCropsBeforeFlip(t *testing.T) {
	src := gradient(20, 10)
	got, err := Apply(src, 0.1, Recipe{Bias: BiasTopRight, Flip: true})
	require.NoError(t, err)
	cropped, err := Crop(src, Margins{Top: 1, Right: 2})
	require.NoError(t, err)
	assert.Equal(t, FlipHorizontal(cropped).Pix, got.Pix)
}

func TestApplyIdentityCopies(t *testing.T) {
	src := gradient(3, 3)
	got, err := Apply(src, 0.1, Recipe{})
	require.NoError(t, err)
	assert.Equal(t, src.Pix, got.Pix)
	got.Pix[0] = 99
	assert.NotEqual(t, uint8(99), src.Pix[0], "apply must not alias its input")
}

func TestGeomIsPure(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.IOImportForbidden, testutil.RandomnessImportForbidden), "geometric transforms are pure")
}
