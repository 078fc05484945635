package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpusprep/internal/blob"
	"corpusprep/internal/views"
)

func TestGenerateWritesEveryView(t *testing.T) {
	src, dst := blob.NewMemory(), blob.NewMemory()
	put(t, src, "test/42.jpg", encodeJPEG(t, gradient(100, 200)))
	g := &ViewGenerator{Fraction: 0.1}

	sum, err := g.Generate(context.Background(), src, "test", dst, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)

	got := keys(t, dst, "test")
	require.Len(t, got, len(views.Table))
	for name, key := range views.Locate("test", "42.jpg") {
		assert.Contains(t, got, key, name)
	}

	sizes := map[string][2]int{
		"flip":           {100, 200},
		"top_right":      {90, 180},
		"top_right_flip": {90, 180},
		"bottom_left":    {90, 180},
		"center":         {80, 160},
		"center_flip":    {80, 160},
	}
	for name, want := range sizes {
		v, ok := views.Lookup(name)
		require.True(t, ok)
		w, h, ch := config(t, dst, v.Key("test", "42.jpg"))
		assert.Equal(t, want, [2]int{w, h}, name)
		assert.Equal(t, 3, ch, name)
	}
}

func TestGenerateCropsBeforeFlipping(t *testing.T) {
	src, dst := blob.NewMemory(), blob.NewMemory()
	put(t, src, "test/7.png", encodePNG(t, gradient(100, 200)))
	g := &ViewGenerator{Fraction: 0.1}

	_, err := g.Generate(context.Background(), src, "test", dst, "test")
	require.NoError(t, err)

	// top_left keeps x in [10, 100); flipped, its first column is x = 99.
	v, _ := views.Lookup("top_left_flip")
	r, g2, _, _ := decoded(t, dst, v.Key("test", "7.png")).At(0, 0).RGBA()
	assert.Equal(t, uint32(99)*0x101, r)
	assert.Equal(t, uint32(20)*0x101, g2)

	// top_right keeps x in [0, 90); flipped, its first column is x = 89.
	v, _ = views.Lookup("top_right_flip")
	r, _, _, _ = decoded(t, dst, v.Key("test", "7.png")).At(0, 0).RGBA()
	assert.Equal(t, uint32(89)*0x101, r)
}

func TestGenerateCreatesViewDirsWithoutImages(t *testing.T) {
	src, dst := blob.NewMemory(), blob.NewMemory()
	g := &ViewGenerator{Fraction: 0.1}

	sum, err := g.Generate(context.Background(), src, "test", dst, "test")
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Processed)
	dirs := dst.(interface{ Dirs() []string }).Dirs()
	for _, v := range views.Table {
		assert.Contains(t, dirs, v.Dir("test"))
	}
}

func TestGenerateSkipsBrokenImages(t *testing.T) {
	src, dst := blob.NewMemory(), blob.NewMemory()
	put(t, src, "test/1.jpg", []byte("garbage"))
	put(t, src, "test/2.jpg", encodeJPEG(t, gradient(20, 20)))
	g := &ViewGenerator{Fraction: 0.1, Options: Options{Workers: 3}}

	sum, err := g.Generate(context.Background(), src, "test", dst, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	require.Equal(t, 1, sum.Skipped)
	assert.Equal(t, "test/1.jpg", sum.Failures[0].Key)
	assert.Len(t, keys(t, dst, "test"), len(views.Table))
}

func TestGenerateHonoursViewSubset(t *testing.T) {
	src, dst := blob.NewMemory(), blob.NewMemory()
	put(t, src, "test/1.png", encodePNG(t, gradient(10, 10)))
	center, _ := views.Lookup("center")
	g := &ViewGenerator{Fraction: 0.1, Views: []views.View{center}}

	_, err := g.Generate(context.Background(), src, "test", dst, "out")
	require.NoError(t, err)
	assert.Equal(t, []string{"out/center/center/1.png"}, keys(t, dst, ""))
}

func TestGenerateSkipsFormatsWithoutRGB(t *testing.T) {
	src, dst := blob.NewMemory(), blob.NewMemory()
	put(t, src, "test/1.gif", encodeGIF(t, grey(20, 20)))
	g := &ViewGenerator{Fraction: 0.1}

	sum, err := g.Generate(context.Background(), src, "test", dst, "test")
	require.NoError(t, err)
	require.Equal(t, 1, sum.Skipped)
	assert.Equal(t, KindShape, sum.Failures[0].Kind)
	assert.Empty(t, keys(t, dst, ""))
}
