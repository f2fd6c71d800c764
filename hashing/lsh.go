package hashing

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

const (
	// lshBundles is the number of codes produced per vector
	lshBundles = 12

	// lshBits is the number of hyperplanes per code
	lshBits = 16

	lshSeed int64 = 0x6b43a9b5
)

// lsh hashes a vector with random hyperplane projections: each code collects
// the signs of lshBits dot products against fixed Gaussian hyperplanes.
// Vectors with a small angle between them agree on most signs and therefore
// tend to collide in at least one bundle. Hyperplanes are derived from a
// fixed seed and the vector dimension only.
type lsh struct {
	dimension int
	bundles   [][][]float64 // bundle -> bit -> hyperplane normal
}

func newLSH(dimension int) *lsh {
	rng := rand.New(rand.NewSource(lshSeed + int64(dimension)))

	bundles := make([][][]float64, lshBundles)
	for b := range bundles {
		planes := make([][]float64, lshBits)
		for i := range planes {
			normal := make([]float64, dimension)
			for d := range normal {
				normal[d] = rng.NormFloat64()
			}
			planes[i] = normal
		}
		bundles[b] = planes
	}

	return &lsh{
		dimension: dimension,
		bundles:   bundles,
	}
}

func (g *lsh) Kind() core.HashKind {
	return core.HashLSH
}

func (g *lsh) Hash(vector []float64) []int32 {
	codes := make([]int32, len(g.bundles))

	for b, planes := range g.bundles {
		var code int32
		for i, normal := range planes {
			if len(normal) == len(vector) && floats.Dot(normal, vector) > 0 {
				code |= 1 << uint(i)
			}
		}
		codes[b] = code
	}

	return codes
}
