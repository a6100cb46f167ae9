// Package inference - Inference engine interface and the ONNX Runtime implementation.
package inference

import (
	"context"

	"github.com/pkg/errors"
)

// ErrModelNotFound is returned when the ONNX model file does not exist.
var ErrModelNotFound = errors.New("model file not found")

// Engine runs one forward pass of a detection model.
//
// Implementations are not required to be safe for concurrent use.
type Engine interface {
	// InputSize returns S, the side of the square S×S model input.
	InputSize() int
	// Run feeds one [1, 3, S, S] float32 tensor and returns every model output.
	Run(ctx context.Context, input []float32) ([]Tensor, error)
	// Close releases native resources. It is safe to call more than once.
	Close() error
}

// Tensor is a model output copied out of the runtime.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Elements returns the number of values the shape describes, or -1 when a dimension is negative.
func (t Tensor) Elements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		if d < 0 {
			return -1
		}
		n *= d
	}
	return n
}

// Consistent reports whether the data length matches the shape.
func (t Tensor) Consistent() bool {
	return t.Elements() == int64(len(t.Data))
}

// InputLength is the number of float32 values in a [1, 3, size, size] input.
func InputLength(size int) int {
	return 3 * size * size
}
