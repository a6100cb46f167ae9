package inference

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// LibraryEnv names the environment variable that points at the ONNX Runtime shared library.
const LibraryEnv = "ONNXRUNTIME_LIB"

// GetSharedLibPath returns the path to the ONNX Runtime shared library.
//
// Arguments:
//   - override: An explicit path (e.g. from --ort-lib). Empty means unset.
//
// Returns:
//   - string: override if set, else $ONNXRUNTIME_LIB if set, else the platform default.
func GetSharedLibPath(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv(LibraryEnv); env != "" {
		return env
	}
	return defaultSharedLibPath(runtime.GOOS, runtime.GOARCH)
}

func defaultSharedLibPath(goos, goarch string) string {
	switch goos {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

var envMu sync.Mutex

// InitializeEnvironment loads the shared library and prepares the runtime once per process.
//
// Arguments:
//   - libPath: The shared library path, usually from GetSharedLibPath.
//
// Returns:
//   - error: An error if the library is missing or the runtime fails to start.
func InitializeEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnxruntime library not found at %s (set --ort-lib or %s)", libPath, LibraryEnv)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing onnxruntime environment")
	}
	return nil
}

// DestroyEnvironment tears the runtime down. Sessions must be closed first.
func DestroyEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return errors.Wrap(ort.DestroyEnvironment(), "error destroying onnxruntime environment")
}
