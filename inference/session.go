package inference

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/logger"
)

// SessionConfig holds the parameters for opening a model.
type SessionConfig struct {
	// ModelPath is the path to the .onnx file.
	ModelPath string
	// LibraryPath is the ONNX Runtime shared library. Empty uses GetSharedLibPath("").
	LibraryPath string
	// DefaultInputSize is used when the model declares a dynamic spatial input.
	DefaultInputSize int
	// Provider selects the execution provider and session tuning. The zero value runs on the CPU.
	Provider providers.Config
}

// Session is an Engine backed by an ONNX Runtime dynamic session.
type Session struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	input       *ort.Tensor[float32]
	inputName   string
	outputNames []string
	size        int
}

// NewSession opens an ONNX model and reads its input descriptor.
//
// Order of operations:
//  1. Model path check.
//  2. Environment setup (once per process).
//  3. Input/output discovery: S is the last dimension of the first input.
//  4. Input tensor allocation, reused for every Run.
//  5. Session creation.
//
// Arguments:
//   - cfg: The session configuration.
//
// Returns:
//   - *Session: The opened session. Callers must Close it.
//   - error: ErrModelNotFound if the model is missing, otherwise a wrapped runtime error.
func NewSession(cfg SessionConfig) (*Session, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrModelNotFound, cfg.ModelPath)
		}
		return nil, errors.Wrapf(err, "failed to stat model %s", cfg.ModelPath)
	}

	if err := InitializeEnvironment(GetSharedLibPath(cfg.LibraryPath)); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read input/output info from %s", cfg.ModelPath)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.Errorf("model %s declares %d inputs and %d outputs", cfg.ModelPath, len(inputs), len(outputs))
	}

	size, err := InputSizeFromShape(inputs[0].Dimensions, cfg.DefaultInputSize)
	if err != nil {
		return nil, errors.Wrapf(err, "unsupported input %q", inputs[0].Name)
	}

	outputNames := make([]string, len(outputs))
	for i, o := range outputs {
		outputNames[i] = o.Name
	}

	logger.Log().Debug("model loaded",
		zap.String("path", cfg.ModelPath),
		zap.String("input", inputs[0].Name),
		zap.Int64s("input_shape", inputs[0].Dimensions),
		zap.Strings("outputs", outputNames),
		zap.Int("input_size", size),
		zap.Stringer("provider", cfg.Provider),
	)

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	options, err := cfg.Provider.SessionOptions()
	if err != nil {
		input.Destroy()
		return nil, errors.Wrapf(err, "failed to configure %s provider", cfg.Provider.Backend)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, outputNames, options)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating session")
	}

	return &Session{
		session:     session,
		input:       input,
		inputName:   inputs[0].Name,
		outputNames: outputNames,
		size:        size,
	}, nil
}

// InputSizeFromShape extracts S from an NCHW input shape.
//
// Arguments:
//   - shape: The declared input dimensions.
//   - fallback: The size to use when both spatial dimensions are dynamic.
//
// Returns:
//   - int: S.
//   - error: An error if the shape is not [N, 3, S, S] or has no usable size.
func InputSizeFromShape(shape []int64, fallback int) (int, error) {
	if len(shape) != 4 {
		return 0, errors.Errorf("expected a rank 4 input, got %v", shape)
	}
	if shape[1] > 0 && shape[1] != 3 {
		return 0, errors.Errorf("expected 3 input channels, got %v", shape)
	}

	h, w := shape[2], shape[3]
	switch {
	case h > 0 && w > 0 && h != w:
		return 0, errors.Errorf("expected a square input, got %v", shape)
	case w > 0:
		return int(w), nil
	case h > 0:
		return int(h), nil
	case fallback > 0:
		return fallback, nil
	default:
		return 0, errors.Errorf("input %v is dynamic and no default size is set", shape)
	}
}

// InputSize returns S.
func (s *Session) InputSize() int {
	return s.size
}

// Run performs one blocking forward pass.
//
// Arguments:
//   - ctx: Checked before the call. A running pass cannot be interrupted.
//   - input: Exactly 3*S*S values in CHW order.
//
// Returns:
//   - []Tensor: Every model output, copied out of native memory.
//   - error: An error if the input is the wrong size or the runtime fails.
func (s *Session) Run(ctx context.Context, input []float32) ([]Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("session is closed")
	}
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, errors.Errorf("input holds %d floats, model needs %d", len(input), len(dst))
	}
	copy(dst, input)

	values := make([]ort.Value, len(s.outputNames))
	defer func() {
		for _, v := range values {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	if err := s.session.Run([]ort.Value{s.input}, values); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	out := make([]Tensor, 0, len(values))
	for i, v := range values {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, errors.Errorf("output %q is %T, expected a float32 tensor", s.outputNames[i], v)
		}
		shape := v.GetShape()
		out = append(out, Tensor{
			Shape: append([]int64(nil), shape...),
			Data:  append([]float32(nil), t.GetData()...),
		})
	}
	return out, nil
}

// Close releases the session and its input tensor.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying session")
		}
	}
	return nil
}
