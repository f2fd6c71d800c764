package feature

import (
	"fmt"
	"image"
	"math"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// opponentHistogramBins is the number of opponent color space bins
// (4 levels per axis)
const opponentHistogramBins = 64

// Opponent axis normalization constants
var (
	sqrt2 = math.Sqrt(2)
	sqrt6 = math.Sqrt(6)
	sqrt3 = math.Sqrt(3)
)

// opponentHistogram is a normalized 64-bin histogram over the opponent color
// space (O1, O2, O3) with L1 distance. The opponent axes decorrelate
// intensity from chromaticity, which makes the histogram more robust to
// lighting changes than a plain RGB histogram.
type opponentHistogram struct {
	vector []float64
}

func (f *opponentHistogram) Kind() core.FeatureKind {
	return core.FeatureOpponentHistogram
}

func (f *opponentHistogram) Extract(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return fmt.Errorf("%w: empty image", core.ErrImageProcess)
	}

	vector := make([]float64, opponentHistogramBins)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r8, g8, b8 := rgb8(img, x, y)
			r, g, b := float64(r8), float64(g8), float64(b8)

			o1 := (r - g) / sqrt2
			o2 := (r + g - 2*b) / sqrt6
			o3 := (r + g + b) / sqrt3

			bin := quantizeOpponent(o1, -255/sqrt2, 255/sqrt2)<<4 |
				quantizeOpponent(o2, -510/sqrt6, 510/sqrt6)<<2 |
				quantizeOpponent(o3, 0, 765/sqrt3)
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

// quantizeOpponent maps a value in [lo, hi] to one of 4 levels
func quantizeOpponent(v, lo, hi float64) int {
	level := int((v - lo) / (hi - lo) * 4)
	if level < 0 {
		level = 0
	}
	if level > 3 {
		level = 3
	}
	return level
}

func (f *opponentHistogram) Vector() []float64 {
	return f.vector
}

func (f *opponentHistogram) Distance(other Feature) (float64, error) {
	if err := checkComparable(f, other); err != nil {
		return 0, err
	}
	return l1Distance(f.vector, other.Vector()), nil
}

func (f *opponentHistogram) Bytes() ([]byte, error) {
	return encodeVector(f.vector)
}

func (f *opponentHistogram) SetBytes(data []byte) error {
	vector, err := decodeVector(data)
	if err != nil {
		return fmt.Errorf("invalid %s bytes: %w", f.Kind(), err)
	}

	if len(vector) != opponentHistogramBins {
		return fmt.Errorf("invalid %s dimension: %d", f.Kind(), len(vector))
	}

	f.vector = vector
	return nil
}
