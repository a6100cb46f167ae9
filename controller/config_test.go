package controller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/video"
)

// validConfig returns a config whose model and class files exist.
func validConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.onnx")
	labelsPath := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(modelPath, []byte("onnx"), 0o644))
	require.NoError(t, os.WriteFile(labelsPath, []byte("names: [person]\n"), 0o644))

	cfg := DefaultConfig()
	cfg.ModelPath = modelPath
	cfg.LabelsPath = labelsPath
	cfg.Source = "0"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 0.5, cfg.ConfidenceThreshold, 1e-6)
	assert.InDelta(t, 0.45, cfg.IoUThreshold, 1e-6)
	assert.False(t, cfg.ClassAwareNMS)
	assert.Equal(t, "demo1.avi", cfg.RecordFile)
	assert.Equal(t, "MJPG", cfg.RecordCodec)
	assert.InDelta(t, 30, cfg.RecordFPS, 1e-9)
	assert.Equal(t, "capture.png", cfg.SnapshotFile)
	assert.Equal(t, 200, cfg.FPSWindow)
	assert.Equal(t, 5, cfg.StreamWaitMS)
	assert.Equal(t, 640, cfg.DefaultInputSize)

	nms := cfg.NMS()
	assert.InDelta(t, 0.45, nms.IoUThreshold, 1e-6)
	assert.False(t, nms.ClassAware)
}

func TestParseSettings(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ParseSettings([]byte(`
iou_threshold: 0.6
class_aware_nms: true
record_file: out.avi
stream_wait_ms: 1
`))
	require.NoError(t, err)

	assert.InDelta(t, 0.6, cfg.IoUThreshold, 1e-6)
	assert.True(t, cfg.ClassAwareNMS)
	assert.Equal(t, "out.avi", cfg.RecordFile)
	assert.Equal(t, 1, cfg.StreamWaitMS)
	// Untouched keys keep their defaults.
	assert.Equal(t, "MJPG", cfg.RecordCodec)
	assert.Equal(t, 200, cfg.FPSWindow)

	assert.NoError(t, cfg.ParseSettings([]byte("  \n")))
	assert.Error(t, cfg.ParseSettings([]byte("unknown_key: 1\n")))
	assert.Error(t, cfg.ParseSettings([]byte("fps_window: [1, 2]\n")))
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("headless: true\nwindow_title: cam\n"), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadSettings(path))
	assert.True(t, cfg.Headless)
	assert.Equal(t, "cam", cfg.WindowTitle)

	assert.Error(t, cfg.LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	res := images.Resolutions[images.ResolutionAlias720p]

	tests := []struct {
		name   string
		mutate func(c *Config)
		cause  error
		ok     bool
	}{
		{name: "valid", mutate: func(c *Config) {}, ok: true},
		{name: "missing model", mutate: func(c *Config) { c.ModelPath += ".missing" }, cause: inference.ErrModelNotFound},
		{name: "model is a directory", mutate: func(c *Config) { c.ModelPath = filepath.Dir(c.ModelPath) }, cause: inference.ErrModelNotFound},
		{name: "missing labels", mutate: func(c *Config) { c.LabelsPath = "" }, cause: models.ErrLabelsNotFound},
		{name: "confidence above one", mutate: func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{name: "negative IoU", mutate: func(c *Config) { c.IoUThreshold = -0.1 }},
		{name: "zero thresholds", mutate: func(c *Config) { c.ConfidenceThreshold, c.IoUThreshold = 0, 0 }, ok: true},
		{name: "record without resolution", mutate: func(c *Config) { c.Record = true }, cause: ErrRecordNeedsResolution},
		{name: "record with resolution", mutate: func(c *Config) { c.Record = true; c.Resolution = &res }, ok: true},
		{name: "record with bad codec", mutate: func(c *Config) {
			c.Record = true
			c.Resolution = &res
			c.RecordCodec = "MJPEG"
		}},
		{name: "negative fps window", mutate: func(c *Config) { c.FPSWindow = -1 }},
		{name: "zero default input size", mutate: func(c *Config) { c.DefaultInputSize = 0 }},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "tpu" }, cause: providers.ErrUnsupportedBackend},
		{name: "unknown graph level", mutate: func(c *Config) { c.GraphOptimization = "max" }},
		{name: "gpu provider", mutate: func(c *Config) { c.Provider = "cuda" }, cause: providers.ErrUnsupportedBackend},
		{name: "openvino on gpu", mutate: func(c *Config) {
			c.Provider = "openvino"
			c.ProviderOptions = map[string]string{"device_type": "GPU"}
		}, cause: providers.ErrUnsupportedDevice},
		{name: "openvino provider", mutate: func(c *Config) { c.Provider = "OpenVINO" }, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.cause != nil {
				assert.Equal(t, tt.cause, errors.Cause(err))
			}
		})
	}
}

func TestProviderConfig(t *testing.T) {
	cfg := DefaultConfig()
	pc, err := cfg.ProviderConfig()
	require.NoError(t, err)
	assert.Equal(t, providers.BackendCPU, pc.Backend)
	assert.Equal(t, providers.GraphLevelExtended, pc.Optimization.GraphLevel)

	require.NoError(t, cfg.ParseSettings([]byte(`
provider: openvino
provider_options:
  num_of_threads: "8"
intra_op_threads: 4
inter_op_threads: 2
parallel_execution: true
`)))
	pc, err = cfg.ProviderConfig()
	require.NoError(t, err)
	assert.Equal(t, providers.BackendOpenVINO, pc.Backend)
	assert.Equal(t, map[string]string{"device_type": "CPU", "num_of_threads": "8"}, pc.NativeOptions())
	assert.Equal(t, 4, pc.Optimization.IntraOpThreads)
	assert.Equal(t, 2, pc.Optimization.InterOpThreads)
	assert.True(t, pc.Optimization.Parallel)
}

func TestValidateSource(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateSource(&video.Input{Kind: video.KindImage}))

	cfg.Record = true
	for _, kind := range []video.Kind{video.KindImage, video.KindFolder} {
		err := cfg.ValidateSource(&video.Input{Kind: kind})
		assert.Equal(t, ErrRecordNeedsStream, errors.Cause(err), kind.String())
	}
	for _, kind := range []video.Kind{video.KindVideo, video.KindCamera} {
		assert.NoError(t, cfg.ValidateSource(&video.Input{Kind: kind}))
	}
}

func TestKeyMap(t *testing.T) {
	tests := []struct {
		key       int
		detection Command
		replay    Command
	}{
		{key: -1, detection: CommandNone, replay: CommandNone},
		{key: 'q', detection: CommandQuit, replay: CommandQuit},
		{key: 'Q', detection: CommandQuit, replay: CommandQuit},
		{key: 's', detection: CommandPause, replay: CommandNone},
		{key: 'S', detection: CommandPause, replay: CommandNone},
		{key: ' ', detection: CommandNone, replay: CommandPause},
		{key: 'p', detection: CommandSnapshot, replay: CommandSnapshot},
		{key: 'P', detection: CommandSnapshot, replay: CommandSnapshot},
		{key: 0x100 | 'q', detection: CommandQuit, replay: CommandQuit},
		{key: 'x', detection: CommandNone, replay: CommandNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.detection, DetectionKeys.Parse(tt.key), "detection key %d", tt.key)
		assert.Equal(t, tt.replay, ReplayKeys.Parse(tt.key), "replay key %d", tt.key)
	}

	assert.Equal(t, "quit", CommandQuit.String())
	assert.Equal(t, "none", CommandNone.String())
}
