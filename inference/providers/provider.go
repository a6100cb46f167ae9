// Package providers - ONNX Runtime execution providers and session tuning.
//
// Only CPU execution is supported: the default ONNX Runtime CPU provider, or
// OpenVINO running on its CPU device.
package providers

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedBackend is returned for an unknown execution provider name.
	ErrUnsupportedBackend = errors.New("unsupported execution provider")
	// ErrUnsupportedDevice is returned when a provider is pointed at a non-CPU device.
	ErrUnsupportedDevice = errors.New("only CPU devices are supported")
)

// Backend names an ONNX Runtime execution provider.
type Backend string

const (
	// BackendCPU runs on the default CPU provider.
	BackendCPU Backend = "cpu"
	// BackendOpenVINO uses Intel OpenVINO on the CPU.
	BackendOpenVINO Backend = "openvino"
)

// OpenVINODeviceKey is the OpenVINO option selecting the target device.
const OpenVINODeviceKey = "device_type"

// Backends lists every supported backend.
func Backends() []Backend {
	return []Backend{BackendCPU, BackendOpenVINO}
}

// ParseBackend parses a provider name, case-insensitively. An empty name selects the CPU.
func ParseBackend(s string) (Backend, error) {
	name := Backend(strings.ToLower(strings.TrimSpace(s)))
	if name == "" {
		return BackendCPU, nil
	}
	for _, b := range Backends() {
		if b == name {
			return b, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedBackend, "%q", s)
}

// Config selects and tunes the execution provider for a session.
type Config struct {
	// Backend is the execution provider.
	Backend Backend `json:"backend" yaml:"backend"`
	// Options are passed to the provider as-is, e.g. num_of_threads or cache_dir for OpenVINO.
	Options map[string]string `json:"options" yaml:"options"`
	// Optimization tunes graph optimization and threading.
	Optimization Optimization `json:"optimization" yaml:"optimization"`
}

// DefaultConfig returns the CPU provider with extended graph optimization.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendCPU,
		Optimization: DefaultOptimization(),
	}
}

// Validate checks the backend, the target device and the optimization settings.
func (c Config) Validate() error {
	b, err := ParseBackend(string(c.Backend))
	if err != nil {
		return err
	}
	if b == BackendOpenVINO {
		if dev, ok := c.Options[OpenVINODeviceKey]; ok && !strings.HasPrefix(strings.ToUpper(dev), "CPU") {
			return errors.Wrapf(ErrUnsupportedDevice, "openvino %s %q", OpenVINODeviceKey, dev)
		}
	}
	return c.Optimization.Validate()
}

// NativeOptions returns the key/value options handed to the provider.
//
// For OpenVINO the device is set to CPU unless Options already names a CPU variant.
func (c Config) NativeOptions() map[string]string {
	out := make(map[string]string, len(c.Options)+1)
	if c.Backend == BackendOpenVINO {
		out[OpenVINODeviceKey] = "CPU"
	}
	for k, v := range c.Options {
		out[k] = v
	}
	return out
}

// String describes the config for logs, e.g. "openvino device_type=CPU".
func (c Config) String() string {
	opts := c.NativeOptions()
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(c.Backend))
	for _, k := range keys {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(opts[k])
	}
	return sb.String()
}
