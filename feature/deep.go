package feature

import (
	"fmt"
	"image"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// deepInputSize is the square input resolution expected by the embedding model
const deepInputSize = 224

// ImageNet channel statistics used to normalize model input
var (
	deepMean = [3]float32{0.485, 0.456, 0.406}
	deepStd  = [3]float32{0.229, 0.224, 0.225}
)

// Session produces embedding vectors from preprocessed image tensors.
// The interface allows swapping the real ONNX Runtime session for a mock
// in tests.
type Session interface {
	// Embed runs inference on a CHW float32 tensor of the given spatial size
	Embed(chw []float32, height, width int) ([]float32, error)

	// Close releases session resources
	Close() error
}

var (
	deepMu      sync.RWMutex
	deepSession Session
)

// SetDeepSession installs the process-wide embedding session used by the
// DEEP feature kind. Pass nil to disable deep extraction.
func SetDeepSession(s Session) {
	deepMu.Lock()
	defer deepMu.Unlock()
	deepSession = s
}

// DeepSession returns the installed embedding session, or nil
func DeepSession() Session {
	deepMu.RLock()
	defer deepMu.RUnlock()
	return deepSession
}

// deepFeature is a neural embedding descriptor with cosine distance
type deepFeature struct {
	vector []float64
}

func (f *deepFeature) Kind() core.FeatureKind {
	return core.FeatureDeep
}

func (f *deepFeature) Extract(img image.Image) error {
	session := DeepSession()
	if session == nil {
		return fmt.Errorf("%w: no embedding session configured for DEEP feature", core.ErrImageProcess)
	}

	chw := preprocessDeep(img)

	embedding, err := session.Embed(chw, deepInputSize, deepInputSize)
	if err != nil {
		return fmt.Errorf("%w: embedding inference failed: %v", core.ErrImageProcess, err)
	}

	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding session returned empty vector", core.ErrImageProcess)
	}

	vector := make([]float64, len(embedding))
	for i, v := range embedding {
		vector[i] = float64(v)
	}

	f.vector = vector
	return nil
}

// preprocessDeep resizes an image to the model input resolution and lays it
// out as a normalized CHW tensor
func preprocessDeep(img image.Image) []float32 {
	resized := resize(img, deepInputSize, deepInputSize)

	chw := make([]float32, 3*deepInputSize*deepInputSize)
	plane := deepInputSize * deepInputSize

	for y := 0; y < deepInputSize; y++ {
		for x := 0; x < deepInputSize; x++ {
			r, g, b := rgb8(resized, x, y)
			idx := y*deepInputSize + x
			chw[idx] = (float32(r)/255 - deepMean[0]) / deepStd[0]
			chw[plane+idx] = (float32(g)/255 - deepMean[1]) / deepStd[1]
			chw[2*plane+idx] = (float32(b)/255 - deepMean[2]) / deepStd[2]
		}
	}

	return chw
}

func (f *deepFeature) Vector() []float64 {
	return f.vector
}

// Distance is the cosine distance (1 - cosine similarity)
func (f *deepFeature) Distance(other Feature) (float64, error) {
	if err := checkComparable(f, other); err != nil {
		return 0, err
	}

	a, b := f.vector, other.Vector()

	normA := math.Sqrt(floats.Dot(a, a))
	normB := math.Sqrt(floats.Dot(b, b))
	if normA == 0 || normB == 0 {
		return 1, nil
	}

	return 1 - floats.Dot(a, b)/(normA*normB), nil
}

func (f *deepFeature) Bytes() ([]byte, error) {
	return encodeVector(f.vector)
}

func (f *deepFeature) SetBytes(data []byte) error {
	vector, err := decodeVector(data)
	if err != nil {
		return fmt.Errorf("invalid %s bytes: %w", f.Kind(), err)
	}

	f.vector = vector
	return nil
}
