package dataset

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"corpusprep/internal/blob"
	"corpusprep/internal/imaging"
)

// gradient returns a w x h image whose pixels encode their coordinates.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 0xff})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func put(t *testing.T, store blob.Store, key string, b []byte) {
	t.Helper()
	_, err := store.Put(context.Background(), key, bytes.NewReader(b), blob.PutOptions{Replace: true})
	require.NoError(t, err)
}

func get(t *testing.T, store blob.Store, key string) []byte {
	t.Helper()
	_, rc, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}

func config(t *testing.T, store blob.Store, key string) (w, h, channels int) {
	t.Helper()
	cfg, _, err := imaging.DecodeConfig(bytes.NewReader(get(t, store, key)))
	require.NoError(t, err)
	ch, err := imaging.Channels(cfg.ColorModel)
	require.NoError(t, err)
	return cfg.Width, cfg.Height, ch
}

func decoded(t *testing.T, store blob.Store, key string) image.Image {
	t.Helper()
	img, _, err := imaging.Decode(bytes.NewReader(get(t, store, key)))
	require.NoError(t, err)
	return img
}

func keys(t *testing.T, store blob.Store, prefix string) []string {
	t.Helper()
	infos, err := store.List(context.Background(), prefix)
	require.NoError(t, err)
	out := make([]string, len(infos))
	for i, inf := range infos {
		out[i] = inf.Key
	}
	return out
}
