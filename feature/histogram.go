package feature

import (
	"fmt"
	"image"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// colorHistogramBins is the number of RGB histogram bins (2 bits per channel)
const colorHistogramBins = 64

// colorHistogram is a normalized 64-bin RGB color histogram with L1 distance
type colorHistogram struct {
	vector []float64
}

func (f *colorHistogram) Kind() core.FeatureKind {
	return core.FeatureColorHistogram
}

// Extract computes the histogram over all pixels
func (f *colorHistogram) Extract(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return fmt.Errorf("%w: empty image", core.ErrImageProcess)
	}

	vector := make([]float64, colorHistogramBins)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := rgb8(img, x, y)
			// Top two bits of each channel select the bin
			bin := int(r>>6)<<4 | int(g>>6)<<2 | int(b>>6)
			vector[bin]++
		}
	}

	total := float64(bounds.Dx() * bounds.Dy())
	for i := range vector {
		vector[i] /= total
	}

	f.vector = vector
	return nil
}

func (f *colorHistogram) Vector() []float64 {
	return f.vector
}

func (f *colorHistogram) Distance(other Feature) (float64, error) {
	if err := checkComparable(f, other); err != nil {
		return 0, err
	}
	return l1Distance(f.vector, other.Vector()), nil
}

func (f *colorHistogram) Bytes() ([]byte, error) {
	return encodeVector(f.vector)
}

func (f *colorHistogram) SetBytes(data []byte) error {
	vector, err := decodeVector(data)
	if err != nil {
		return fmt.Errorf("invalid %s bytes: %w", f.Kind(), err)
	}

	if len(vector) != colorHistogramBins {
		return fmt.Errorf("invalid %s dimension: %d", f.Kind(), len(vector))
	}

	f.vector = vector
	return nil
}
