package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrUnknownLayout is returned when a colour model cannot be mapped to a channel count.
var ErrUnknownLayout = errors.New("imaging: unknown colour layout")

// Channels reports how many colour channels the stored representation of an
// image with colour model m carries: 1 for grey and palette images, 3 for RGB
// and YCbCr, 4 for images with alpha and CMYK.
func Channels(m color.Model) (int, error) {
	if _, ok := m.(color.Palette); ok {
		return 1, nil
	}
	switch m {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return 1, nil
	case color.YCbCrModel, color.RGBAModel, color.RGBA64Model:
		return 3, nil
	case color.NYCbCrAModel, color.NRGBAModel, color.NRGBA64Model, color.CMYKModel:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnknownLayout, m)
}

// ToRGB converts any image into an opaque RGBA raster whose alpha is always 255.
// Alpha is discarded rather than composited: the un-premultiplied colour of
// every pixel is kept as is. Grey values are replicated, CMYK and palette
// entries are resolved through their colour models. The conversion is a pure
// function of the pixel data.
func ToRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if rgba, ok := src.(*image.RGBA); ok && rgba.Opaque() {
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return dst
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := y*dst.Stride + x*4
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}
