package video

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Display shows annotated frames and reports key presses.
type Display interface {
	// Show renders frame.
	Show(frame gocv.Mat)
	// WaitKey waits up to delay milliseconds (0 = forever) and returns the key code, or -1.
	WaitKey(delay int) int
	// Close releases the display. Later calls are no-ops.
	Close() error
}

// Window is a Display backed by a HighGUI window.
type Window struct {
	window *gocv.Window
	once   sync.Once
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show renders frame in the window.
func (w *Window) Show(frame gocv.Mat) {
	w.window.IMShow(frame)
}

// WaitKey pumps the window event loop.
func (w *Window) WaitKey(delay int) int {
	return w.window.WaitKey(delay)
}

// Close destroys the window.
func (w *Window) Close() error {
	var err error
	w.once.Do(func() {
		err = w.window.Close()
	})
	return err
}

// Headless is a Display that shows nothing and never reports a key.
type Headless struct{}

// Show does nothing.
func (Headless) Show(gocv.Mat) {}

// WaitKey returns -1 immediately.
func (Headless) WaitKey(int) int { return -1 }

// Close does nothing.
func (Headless) Close() error { return nil }

// Recorder persists annotated frames.
type Recorder interface {
	// Write appends one frame.
	Write(frame gocv.Mat) error
	// Close finalizes the output. Later calls are no-ops.
	Close() error
}

// RecorderConfig describes the output video.
type RecorderConfig struct {
	// Path of the output file, e.g. demo1.avi.
	Path string
	// Codec is a FourCC string, e.g. MJPG.
	Codec string
	// FPS is the nominal playback rate.
	FPS float64
	// Size is the frame size. Frames of another size are resized before writing.
	Size image.Point
}

// FileRecorder writes frames to a video file.
type FileRecorder struct {
	writer *gocv.VideoWriter
	size   image.Point
	once   sync.Once
	err    error
}

// NewRecorder opens a video writer.
//
// Arguments:
//   - cfg: The output configuration. Size must be positive.
//
// Returns:
//   - *FileRecorder: The recorder. Callers must Close it.
//   - error: An error if the writer cannot be opened.
func NewRecorder(cfg RecorderConfig) (*FileRecorder, error) {
	if cfg.Size.X <= 0 || cfg.Size.Y <= 0 {
		return nil, errors.Errorf("invalid recording size %v", cfg.Size)
	}
	if len(cfg.Codec) != 4 {
		return nil, errors.Errorf("codec must be a four character code, got %q", cfg.Codec)
	}

	writer, err := gocv.VideoWriterFile(cfg.Path, cfg.Codec, cfg.FPS, cfg.Size.X, cfg.Size.Y, true)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening video writer %s", cfg.Path)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, errors.Errorf("video writer %s did not open", cfg.Path)
	}
	return &FileRecorder{writer: writer, size: cfg.Size}, nil
}

// Write appends frame, resizing it to the recording size when needed.
func (r *FileRecorder) Write(frame gocv.Mat) error {
	if frame.Cols() == r.size.X && frame.Rows() == r.size.Y {
		return r.writer.Write(frame)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, r.size, 0, 0, gocv.InterpolationLinear)
	return r.writer.Write(resized)
}

// Close finalizes the file.
func (r *FileRecorder) Close() error {
	r.once.Do(func() {
		r.err = r.writer.Close()
	})
	return r.err
}

// SaveSnapshot writes frame to path as an image.
func SaveSnapshot(path string, frame gocv.Mat) error {
	if frame.Empty() {
		return errors.New("cannot save an empty frame")
	}
	if ok := gocv.IMWrite(path, frame); !ok {
		return errors.Errorf("failed to write %s", path)
	}
	return nil
}
