package providers

import (
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Graph optimization levels accepted by Optimization.GraphLevel.
const (
	GraphLevelDisabled = "disabled"
	GraphLevelBasic    = "basic"
	GraphLevelExtended = "extended"
	GraphLevelAll      = "all"
)

// Optimization holds session-wide ONNX Runtime tuning.
type Optimization struct {
	// GraphLevel is one of disabled, basic, extended or all.
	GraphLevel string `json:"graph_level" yaml:"graph_level"`
	// Parallel runs independent graph branches concurrently.
	Parallel bool `json:"parallel" yaml:"parallel"`
	// IntraOpThreads parallelizes single operators. 0 keeps the runtime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads parallelizes independent operators. 0 keeps the runtime default.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
}

// DefaultOptimization returns extended graph optimization, sequential execution and default threading.
func DefaultOptimization() Optimization {
	return Optimization{GraphLevel: GraphLevelExtended}
}

// Validate checks the graph level and thread counts.
func (o Optimization) Validate() error {
	if _, err := o.graphLevel(); err != nil {
		return err
	}
	if o.IntraOpThreads < 0 || o.InterOpThreads < 0 {
		return errors.Errorf("thread counts must not be negative, got intra %d inter %d",
			o.IntraOpThreads, o.InterOpThreads)
	}
	return nil
}

func (o Optimization) graphLevel() (ort.GraphOptimizationLevel, error) {
	switch strings.ToLower(o.GraphLevel) {
	case GraphLevelDisabled:
		return ort.GraphOptimizationLevelDisableAll, nil
	case GraphLevelBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "", GraphLevelExtended:
		return ort.GraphOptimizationLevelEnableExtended, nil
	case GraphLevelAll:
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, errors.Errorf("unknown graph optimization level %q", o.GraphLevel)
	}
}

func (o Optimization) executionMode() ort.ExecutionMode {
	if o.Parallel {
		return ort.ExecutionModeParallel
	}
	return ort.ExecutionModeSequential
}

// SessionOptions builds ONNX Runtime session options for c. The environment must be initialized.
//
// Returns:
//   - *ort.SessionOptions: The options. Callers must Destroy them once the session exists.
//   - error: An error if the config is invalid or the provider cannot be attached.
func (c Config) SessionOptions() (*ort.SessionOptions, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	level, _ := c.Optimization.graphLevel()
	c.Backend, _ = ParseBackend(string(c.Backend))

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating session options")
	}

	if err := configure(options, c, level); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, c Config, level ort.GraphOptimizationLevel) error {
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return errors.Wrap(err, "error setting graph optimization level")
	}
	if err := options.SetExecutionMode(c.Optimization.executionMode()); err != nil {
		return errors.Wrap(err, "error setting execution mode")
	}
	if n := c.Optimization.IntraOpThreads; n > 0 {
		if err := options.SetIntraOpNumThreads(n); err != nil {
			return errors.Wrap(err, "error setting intra-op threads")
		}
	}
	if n := c.Optimization.InterOpThreads; n > 0 {
		if err := options.SetInterOpNumThreads(n); err != nil {
			return errors.Wrap(err, "error setting inter-op threads")
		}
	}
	return appendProvider(options, c)
}

func appendProvider(options *ort.SessionOptions, c Config) error {
	switch c.Backend {
	case "", BackendCPU:
		return nil

	case BackendOpenVINO:
		if err := options.AppendExecutionProviderOpenVINO(c.NativeOptions()); err != nil {
			return errors.Wrap(err, "error enabling OpenVINO execution provider")
		}
		return nil

	default:
		return errors.Wrapf(ErrUnsupportedBackend, "%q", c.Backend)
	}
}
