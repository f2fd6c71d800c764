package feature

import (
	"fmt"
	"image"
	"math"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

const (
	// edgeHistogramBins is 4x4 sub-images times 5 edge types
	edgeHistogramBins = 80

	// edgeGrid is the number of sub-images per axis
	edgeGrid = 4

	// edgeThreshold is the minimum filter response for a block to count as
	// an edge block
	edgeThreshold = 11.0
)

// Edge filter coefficients for a 2x2 block (top-left, top-right,
// bottom-left, bottom-right), MPEG-7 style: vertical, horizontal,
// 45 degree, 135 degree and non-directional
var edgeFilters = [5][4]float64{
	{1, -1, 1, -1},
	{1, 1, -1, -1},
	{math.Sqrt2, 0, 0, -math.Sqrt2},
	{0, math.Sqrt2, -math.Sqrt2, 0},
	{2, -2, -2, 2},
}

// edgeHistogram is a normalized 80-bin local edge histogram with L1
// distance. The image is divided into a 4x4 grid; each cell counts the
// dominant edge type of its 2x2 pixel blocks.
type edgeHistogram struct {
	vector []float64
}

func (f *edgeHistogram) Kind() core.FeatureKind {
	return core.FeatureEdgeHistogram
}

func (f *edgeHistogram) Extract(img image.Image) error {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 2*edgeGrid || h < 2*edgeGrid {
		return fmt.Errorf("%w: image too small for edge histogram: %dx%d", core.ErrImageProcess, w, h)
	}

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := rgb8(img, bounds.Min.X+x, bounds.Min.Y+y)
			gray[y*w+x] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		}
	}

	vector := make([]float64, edgeHistogramBins)
	cellW, cellH := w/edgeGrid, h/edgeGrid

	for cy := 0; cy < edgeGrid; cy++ {
		for cx := 0; cx < edgeGrid; cx++ {
			cell := (cy*edgeGrid + cx) * 5
			var blocks float64

			for by := cy * cellH; by+1 < (cy+1)*cellH; by += 2 {
				for bx := cx * cellW; bx+1 < (cx+1)*cellW; bx += 2 {
					blocks++

					tl := gray[by*w+bx]
					tr := gray[by*w+bx+1]
					bl := gray[(by+1)*w+bx]
					br := gray[(by+1)*w+bx+1]

					best, bestType := 0.0, -1
					for t, filter := range edgeFilters {
						strength := math.Abs(filter[0]*tl + filter[1]*tr + filter[2]*bl + filter[3]*br)
						if strength > best {
							best, bestType = strength, t
						}
					}

					if bestType >= 0 && best >= edgeThreshold {
						vector[cell+bestType]++
					}
				}
			}

			if blocks > 0 {
				for t := 0; t < 5; t++ {
					vector[cell+t] /= blocks
				}
			}
		}
	}

	f.vector = vector
	return nil
}

func (f *edgeHistogram) Vector() []float64 {
	return f.vector
}

func (f *edgeHistogram) Distance(other Feature) (float64, error) {
	if err := checkComparable(f, other); err != nil {
		return 0, err
	}
	return l1Distance(f.vector, other.Vector()), nil
}

func (f *edgeHistogram) Bytes() ([]byte, error) {
	return encodeVector(f.vector)
}

func (f *edgeHistogram) SetBytes(data []byte) error {
	vector, err := decodeVector(data)
	if err != nil {
		return fmt.Errorf("invalid %s bytes: %w", f.Kind(), err)
	}

	if len(vector) != edgeHistogramBins {
		return fmt.Errorf("invalid %s dimension: %d", f.Kind(), len(vector))
	}

	f.vector = vector
	return nil
}
