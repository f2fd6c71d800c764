// Package feature implements the image feature descriptors and their byte
// codec. Each descriptor is a fixed-length numeric vector with a native
// distance function; descriptors of different kinds are not comparable.
package feature

import (
	"fmt"
	"image"
	"math"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// Feature is an extracted image descriptor
type Feature interface {
	// Kind returns the descriptor kind
	Kind() core.FeatureKind

	// Extract computes the descriptor from a decoded image
	Extract(img image.Image) error

	// Vector returns the raw feature vector
	Vector() []float64

	// Distance computes the kind's native distance to another feature
	// (lower = more similar)
	Distance(other Feature) (float64, error)

	// Bytes returns the stored byte representation of the vector
	Bytes() ([]byte, error)

	// SetBytes restores the vector from its stored byte representation
	SetBytes(data []byte) error
}

// New creates an empty feature of the given kind
func New(kind core.FeatureKind) (Feature, error) {
	switch kind {
	case core.FeatureColorHistogram:
		return &colorHistogram{}, nil
	case core.FeatureOpponentHistogram:
		return &opponentHistogram{}, nil
	case core.FeatureEdgeHistogram:
		return &edgeHistogram{}, nil
	case core.FeatureDeep:
		return &deepFeature{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownFeatureKind, kind)
	}
}

// Extract creates a feature of the given kind from a decoded image
func Extract(kind core.FeatureKind, img image.Image) (Feature, error) {
	f, err := New(kind)
	if err != nil {
		return nil, err
	}

	if err := f.Extract(img); err != nil {
		return nil, err
	}

	return f, nil
}

// Decode restores a feature of the given kind from its stored bytes
func Decode(kind core.FeatureKind, data []byte) (Feature, error) {
	f, err := New(kind)
	if err != nil {
		return nil, err
	}

	if err := f.SetBytes(data); err != nil {
		return nil, err
	}

	return f, nil
}

// checkComparable validates that two features can be compared
func checkComparable(a, b Feature) error {
	if a.Kind() != b.Kind() {
		return fmt.Errorf("cannot compare %s feature to %s feature", a.Kind(), b.Kind())
	}

	if len(a.Vector()) != len(b.Vector()) {
		return fmt.Errorf("feature dimensions must match: %d != %d",
			len(a.Vector()), len(b.Vector()))
	}

	return nil
}

// l1Distance calculates the sum of absolute component differences
func l1Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}
