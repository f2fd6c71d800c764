package hashing

import (
	"math"
	"math/rand"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

const (
	// bitSamplingBundles is the number of codes produced per vector
	bitSamplingBundles = 16

	// bitSamplingBits is the number of sampled bits per code
	bitSamplingBits = 12

	// bitSamplingLevels is the per-component quantization resolution
	bitSamplingLevels = 64

	bitSamplingSeed int64 = 0x2c9277b5
)

// samplePoint selects one bit of one quantized vector component
type samplePoint struct {
	component int
	bit       uint
}

// bitSampling hashes a vector by quantizing each component to 6 bits and
// sampling fixed random bit positions into code bundles. Sampling tables are
// derived from a fixed seed and the vector dimension only.
type bitSampling struct {
	dimension int
	bundles   [][]samplePoint
}

func newBitSampling(dimension int) *bitSampling {
	rng := rand.New(rand.NewSource(bitSamplingSeed + int64(dimension)))

	bundles := make([][]samplePoint, bitSamplingBundles)
	for b := range bundles {
		points := make([]samplePoint, bitSamplingBits)
		for i := range points {
			points[i] = samplePoint{
				component: rng.Intn(dimension),
				bit:       uint(rng.Intn(6)),
			}
		}
		bundles[b] = points
	}

	return &bitSampling{
		dimension: dimension,
		bundles:   bundles,
	}
}

func (g *bitSampling) Kind() core.HashKind {
	return core.HashBitSampling
}

func (g *bitSampling) Hash(vector []float64) []int32 {
	quantized := make([]uint32, len(vector))
	for i, v := range vector {
		quantized[i] = quantizeComponent(v)
	}

	codes := make([]int32, len(g.bundles))
	for b, points := range g.bundles {
		var code int32
		for i, p := range points {
			if p.component < len(quantized) && quantized[p.component]>>p.bit&1 == 1 {
				code |= 1 << uint(i)
			}
		}
		codes[b] = code
	}

	return codes
}

// quantizeComponent maps a component to a 6-bit level, saturating outside
// [0, 1]
func quantizeComponent(v float64) uint32 {
	if math.IsNaN(v) {
		return 0
	}

	level := int(v * (bitSamplingLevels - 1))
	if level < 0 {
		level = 0
	}
	if level > bitSamplingLevels-1 {
		level = bitSamplingLevels - 1
	}

	return uint32(level)
}
