package feature

import (
	"encoding/binary"
	"fmt"
)

// Stored byte representation: a uint32 component count followed by each
// component as a big-endian float32. The format is shared by every feature
// kind; the kind itself is carried by the field name, not the payload.

// encodeVector serializes a feature vector to its stored byte representation
func encodeVector(vector []float64) ([]byte, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("cannot encode empty feature vector")
	}

	buf := make([]byte, 4+4*len(vector))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(vector)))

	for i, v := range vector {
		binary.BigEndian.PutUint32(buf[4+4*i:], floatBits(v))
	}

	return buf, nil
}

// decodeVector restores a feature vector from its stored byte representation
func decodeVector(data []byte) ([]float64, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("feature bytes too short: %d", len(data))
	}

	dim := binary.BigEndian.Uint32(data[0:4])
	if dim == 0 {
		return nil, fmt.Errorf("feature bytes declare zero dimension")
	}

	if uint32(len(data)-4) != 4*dim {
		return nil, fmt.Errorf("feature bytes truncated: want %d components, have %d bytes",
			dim, len(data)-4)
	}

	vector := make([]float64, dim)
	for i := range vector {
		vector[i] = floatFromBits(binary.BigEndian.Uint32(data[4+4*i:]))
	}

	return vector, nil
}
