// Package hashing implements the hash code generators used for approximate
// candidate retrieval. A generator deterministically maps a feature vector to
// a fixed-size set of int32 codes; the same vector always yields the same
// codes, across process restarts, so index-time and query-time codes agree.
package hashing

import (
	"fmt"
	"sync"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// Generator maps a feature vector to a set of hash codes
type Generator interface {
	// Kind returns the hash algorithm
	Kind() core.HashKind

	// Hash computes the code set for a vector
	Hash(vector []float64) []int32
}

// New creates a generator of the given kind for vectors of the given
// dimension
func New(kind core.HashKind, dimension int) (Generator, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hash generator dimension must be positive, got %d", dimension)
	}

	switch kind {
	case core.HashBitSampling:
		return newBitSampling(dimension), nil
	case core.HashLSH:
		return newLSH(dimension), nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownHashKind, kind)
	}
}

type generatorKey struct {
	kind core.HashKind
	dim  int
}

var (
	generatorsMu sync.Mutex
	generators   = make(map[generatorKey]Generator)
)

// For returns a shared generator for the given kind and dimension.
// Generators build their sampling tables once and are safe for concurrent
// use afterwards.
func For(kind core.HashKind, dimension int) (Generator, error) {
	generatorsMu.Lock()
	defer generatorsMu.Unlock()

	key := generatorKey{kind: kind, dim: dimension}
	if gen, ok := generators[key]; ok {
		return gen, nil
	}

	gen, err := New(kind, dimension)
	if err != nil {
		return nil, err
	}

	generators[key] = gen
	return gen, nil
}

// Codes computes the hash code set for a vector under the given algorithm
func Codes(kind core.HashKind, vector []float64) ([]int32, error) {
	gen, err := For(kind, len(vector))
	if err != nil {
		return nil, err
	}

	return gen.Hash(vector), nil
}
