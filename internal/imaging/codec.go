// Package imaging decodes and encodes corpus images and normalizes their colour
// layout to three-channel RGB.
package imaging

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register webp decoder
)

// Format identifies an on-disk image encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatWEBP Format = "webp"
)

// DefaultJPEGQuality matches the quality OpenCV-based tooling writes by default.
const DefaultJPEGQuality = 95

// ErrUnsupportedFormat is returned for extensions without an encoder.
var ErrUnsupportedFormat = errors.New("imaging: unsupported format")

var extFormats = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".webp": FormatWEBP,
}

// FormatFromName maps a file name extension to a Format.
func FormatFromName(name string) (Format, error) {
	ext := strings.ToLower(path.Ext(name))
	f, ok := extFormats[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// IsImageName reports whether name carries a known image extension.
func IsImageName(name string) bool {
	_, err := FormatFromName(name)
	return err == nil
}

// StoresRGB reports whether images written in f keep three colour channels.
// GIF is always paletted and WebP has no encoder.
func (f Format) StoresRGB() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatBMP, FormatTIFF:
		return true
	}
	return false
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "image/" + string(f)
	}
}

// Codec encodes images. The zero value writes JPEG at DefaultJPEGQuality.
type Codec struct {
	JPEGQuality int
}

// Decode reads a full image.
func Decode(r io.Reader) (image.Image, Format, error) {
	img, name, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, Format(name), nil
}

// DecodeConfig reads only the image header.
func DecodeConfig(r io.Reader) (image.Config, Format, error) {
	cfg, name, err := image.DecodeConfig(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decode image header: %w", err)
	}
	return cfg, Format(name), nil
}

// Encode writes img in format f.
func (c Codec) Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatJPEG:
		q := c.JPEGQuality
		if q <= 0 {
			q = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatGIF:
		return gif.Encode(w, img, nil)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: no encoder for %s", ErrUnsupportedFormat, f)
	}
}

// EncodeBytes encodes img for the file name's extension.
func (c Codec) EncodeBytes(img image.Image, name string) ([]byte, Format, error) {
	f, err := FormatFromName(name)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, img, f); err != nil {
		return nil, f, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), f, nil
}
