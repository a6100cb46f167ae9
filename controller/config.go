package controller

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/video"
)

var (
	// ErrRecordNeedsResolution is returned when recording is requested without a display resolution.
	ErrRecordNeedsResolution = errors.New("recording requires --resolution")
	// ErrRecordNeedsStream is returned when recording is requested on an image or folder source.
	ErrRecordNeedsStream = errors.New("recording is only supported for video and camera sources")
)

// Settings are the tunables that may come from a YAML settings file.
type Settings struct {
	IoUThreshold     float32 `yaml:"iou_threshold"`
	ClassAwareNMS    bool    `yaml:"class_aware_nms"`
	RecordFile       string  `yaml:"record_file"`
	RecordFPS        float64 `yaml:"record_fps"`
	RecordCodec      string  `yaml:"record_codec"`
	SnapshotFile     string  `yaml:"snapshot_file"`
	WindowTitle      string  `yaml:"window_title"`
	FPSWindow        int     `yaml:"fps_window"`
	StreamWaitMS     int     `yaml:"stream_wait_ms"`
	DefaultInputSize int     `yaml:"default_input_size"`
	IntraOpThreads   int     `yaml:"intra_op_threads"`
	Headless         bool    `yaml:"headless"`

	// Execution provider selection, see the providers package.
	Provider          string            `yaml:"provider"`
	ProviderOptions   map[string]string `yaml:"provider_options"`
	GraphOptimization string            `yaml:"graph_optimization"`
	ParallelExecution bool              `yaml:"parallel_execution"`
	InterOpThreads    int               `yaml:"inter_op_threads"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		IoUThreshold:     postprocess.DefaultNMSConfig().IoUThreshold,
		ClassAwareNMS:    false,
		RecordFile:       "demo1.avi",
		RecordFPS:        30,
		RecordCodec:      "MJPG",
		SnapshotFile:     "capture.png",
		WindowTitle:      "YOLO ONNX detection results",
		FPSWindow:        200,
		StreamWaitMS:     5,
		DefaultInputSize: 640,
		IntraOpThreads:   0,

		Provider:          string(providers.BackendCPU),
		GraphOptimization: providers.GraphLevelExtended,
	}
}

// Config is a complete detection run.
type Config struct {
	// ModelPath is the ONNX model file.
	ModelPath string
	// LabelsPath is the YAML class file.
	LabelsPath string
	// Source is a file, folder or camera index.
	Source string
	// ConfidenceThreshold is τ_conf.
	ConfidenceThreshold float32
	// Resolution, when set, is the display and recording size.
	Resolution *images.Resolution
	// Record enables writing annotated frames to Settings.RecordFile.
	Record bool
	// LibraryPath overrides the ONNX Runtime shared library lookup.
	LibraryPath string

	Settings
}

// DefaultConfig returns a config with τ_conf 0.5 and the default settings.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		Settings:            DefaultSettings(),
	}
}

// LoadSettings overlays a YAML settings file onto c.Settings. Keys absent from the file keep their values.
//
// Arguments:
//   - path: The settings file.
//
// Returns:
//   - error: An error if the file cannot be read, has unknown keys, or is malformed.
func (c *Config) LoadSettings(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read settings %s", path)
	}
	return c.ParseSettings(data)
}

// ParseSettings overlays YAML settings onto c.Settings.
func (c *Config) ParseSettings(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c.Settings); err != nil {
		return errors.Wrap(err, "failed to parse settings")
	}
	return nil
}

// Validate checks everything that does not depend on the source kind.
//
// Order: model file, class file, thresholds, recording, settings, execution provider.
//
// Returns:
//   - error: inference.ErrModelNotFound, models.ErrLabelsNotFound or ErrRecordNeedsResolution
//     (wrapped), or a range error.
func (c *Config) Validate() error {
	if !isFile(c.ModelPath) {
		return errors.Wrapf(inference.ErrModelNotFound, "%q", c.ModelPath)
	}
	if !isFile(c.LabelsPath) {
		return errors.Wrapf(models.ErrLabelsNotFound, "%q", c.LabelsPath)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence threshold must be in [0, 1], got %v", c.ConfidenceThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return errors.Errorf("IoU threshold must be in [0, 1], got %v", c.IoUThreshold)
	}
	if c.Record && c.Resolution == nil {
		return ErrRecordNeedsResolution
	}
	if c.Record && (c.RecordFile == "" || len(c.RecordCodec) != 4 || c.RecordFPS <= 0) {
		return errors.Errorf("invalid recording settings: file %q codec %q fps %v",
			c.RecordFile, c.RecordCodec, c.RecordFPS)
	}
	if c.FPSWindow < 0 || c.StreamWaitMS < 0 || c.IntraOpThreads < 0 {
		return errors.New("fps_window, stream_wait_ms and intra_op_threads must not be negative")
	}
	if c.DefaultInputSize <= 0 {
		return errors.Errorf("default_input_size must be positive, got %d", c.DefaultInputSize)
	}
	if _, err := c.ProviderConfig(); err != nil {
		return err
	}
	return nil
}

// ProviderConfig returns the execution provider settings.
func (c *Config) ProviderConfig() (providers.Config, error) {
	backend, err := providers.ParseBackend(c.Provider)
	if err != nil {
		return providers.Config{}, err
	}
	pc := providers.Config{
		Backend: backend,
		Options: c.ProviderOptions,
		Optimization: providers.Optimization{
			GraphLevel:     c.GraphOptimization,
			Parallel:       c.ParallelExecution,
			IntraOpThreads: c.IntraOpThreads,
			InterOpThreads: c.InterOpThreads,
		},
	}
	if err := pc.Validate(); err != nil {
		return providers.Config{}, err
	}
	return pc, nil
}

// ValidateSource checks the rules that depend on the resolved source.
func (c *Config) ValidateSource(in *video.Input) error {
	if c.Record && !in.Kind.Streaming() {
		return errors.Wrapf(ErrRecordNeedsStream, "source is %s", in.Kind)
	}
	return nil
}

// NMS returns the suppression settings.
func (c *Config) NMS() postprocess.NMSConfig {
	return postprocess.NMSConfig{IoUThreshold: c.IoUThreshold, ClassAware: c.ClassAwareNMS}
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
