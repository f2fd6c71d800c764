package feature

import (
	"bytes"
	"fmt"
	"image"
	"math"

	// Registered image formats accepted by DecodeImage
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// MaxImageDimension bounds the larger side of images before extraction.
// Larger images are downscaled first.
const MaxImageDimension = 1024

// DecodeImage decodes raw image bytes (jpeg, png or gif) and downscales the
// result to MaxImageDimension if necessary
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrImageProcess, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxImageDimension || bounds.Dy() > MaxImageDimension {
		img = ScaleImage(img, MaxImageDimension)
	}

	return img, nil
}

// ScaleImage downscales an image so its larger side equals maxDim,
// preserving the aspect ratio. Images already within bounds are returned
// unchanged.
func ScaleImage(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}

	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))

	return resize(img, nw, nh)
}

// resize produces a nearest-neighbor resampled copy of img
func resize(img image.Image, w, h int) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		sy := bounds.Min.Y + y*bounds.Dy()/h
		for x := 0; x < w; x++ {
			sx := bounds.Min.X + x*bounds.Dx()/w
			dst.Set(x, y, img.At(sx, sy))
		}
	}

	return dst
}

// rgb8 returns 8-bit RGB components of a pixel
func rgb8(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func floatBits(v float64) uint32 {
	return math.Float32bits(float32(v))
}

func floatFromBits(bits uint32) float64 {
	return float64(math.Float32frombits(bits))
}
