package render

import (
	"image"
	"image/color"
)

// sampler returns the color at texture coordinates in [0,1), nearest filter.
type sampler func(u, v float64) (r, g, b uint8)

func texel(u, v float64, b image.Rectangle) (x, y int) {
	w, h := b.Dx(), b.Dy()
	x = int(u * float64(w))
	y = int(v * float64(h))
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	return x + b.Min.X, y + b.Min.Y
}

// newSampler picks a fast path for the decoder's and our own image types.
func newSampler(img image.Image) sampler {
	b := img.Bounds()

	switch src := img.(type) {
	case *image.YCbCr:
		return func(u, v float64) (uint8, uint8, uint8) {
			x, y := texel(u, v, b)
			yi := src.YOffset(x, y)
			ci := src.COffset(x, y)
			return color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
		}
	case *image.RGBA:
		return func(u, v float64) (uint8, uint8, uint8) {
			x, y := texel(u, v, b)
			i := src.PixOffset(x, y)
			return src.Pix[i], src.Pix[i+1], src.Pix[i+2]
		}
	default:
		return func(u, v float64) (uint8, uint8, uint8) {
			x, y := texel(u, v, b)
			r, g, bl, _ := img.At(x, y).RGBA()
			return uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)
		}
	}
}
