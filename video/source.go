// Package video - Frame sources and sinks for the detection loop.
package video

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/util"
)

var (
	// ErrUnsupportedExtension is returned for an existing file that is neither an image nor a video.
	ErrUnsupportedExtension = errors.New("file extension not supported")
	// ErrInvalidSource is returned when the source is not a path and not a camera index.
	ErrInvalidSource = errors.New("input is invalid")
)

// Kind classifies a source.
type Kind int

const (
	// KindImage is a single still image.
	KindImage Kind = iota
	// KindFolder is a directory of still images.
	KindFolder
	// KindVideo is a video file.
	KindVideo
	// KindCamera is a capture device.
	KindCamera
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindFolder:
		return "folder"
	case KindVideo:
		return "video"
	case KindCamera:
		return "camera"
	default:
		return "unknown"
	}
}

// Streaming reports whether frames arrive continuously (video or camera).
func (k Kind) Streaming() bool {
	return k == KindVideo || k == KindCamera
}

// Input is a resolved source.
type Input struct {
	Kind Kind
	// Path is the file or directory. Empty for cameras.
	Path string
	// Device is the camera index.
	Device int
	// Files lists the images to read, in order, for KindImage and KindFolder.
	Files []string
}

// Resolve classifies a --source value.
//
// Order: an existing directory is a folder; an existing file is classified by
// extension; an all-digit string is a camera index; anything else is invalid.
//
// Arguments:
//   - source: A path or a camera index.
//
// Returns:
//   - *Input: The resolved source.
//   - error: ErrUnsupportedExtension or ErrInvalidSource (wrapped), or a folder listing error.
func Resolve(source string) (*Input, error) {
	if info, err := os.Stat(source); err == nil {
		if info.IsDir() {
			files, err := util.ListImageFiles(source)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to list %s", source)
			}
			return &Input{Kind: KindFolder, Path: source, Files: files}, nil
		}

		switch {
		case util.IsImageFile(source):
			return &Input{Kind: KindImage, Path: source, Files: []string{source}}, nil
		case util.IsVideoFile(source):
			return &Input{Kind: KindVideo, Path: source}, nil
		default:
			return nil, errors.Wrapf(ErrUnsupportedExtension, "extension %q", filepath.Ext(source))
		}
	}

	if isDigits(source) {
		device, err := strconv.Atoi(source)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidSource, "camera index %s", source)
		}
		return &Input{Kind: KindCamera, Device: device}, nil
	}

	return nil, errors.Wrapf(ErrInvalidSource, "%q", source)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Source yields frames to the detection loop.
type Source interface {
	// Read fills frame with the next frame. It returns false when the source is exhausted.
	Read(frame *gocv.Mat) bool
	// Streaming reports whether the source is a video or camera.
	Streaming() bool
	// Close releases the underlying handle. Later calls are no-ops.
	Close() error
}

// Open builds the Source for a resolved input.
//
// Arguments:
//   - in: The resolved input.
//
// Returns:
//   - Source: A StaticImageList, VideoStream or CameraStream.
//   - error: An error if the capture cannot be opened.
func Open(in *Input) (Source, error) {
	switch in.Kind {
	case KindImage, KindFolder:
		return NewStaticImageList(in.Files), nil
	case KindVideo:
		capture, err := gocv.VideoCaptureFile(in.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "error opening video file %s", in.Path)
		}
		return &VideoStream{capture: newCapture(capture)}, nil
	case KindCamera:
		capture, err := gocv.OpenVideoCapture(in.Device)
		if err != nil {
			return nil, errors.Wrapf(err, "error opening video capture device %d", in.Device)
		}
		return &CameraStream{capture: newCapture(capture)}, nil
	default:
		return nil, errors.Errorf("unknown source kind %d", in.Kind)
	}
}

// StaticImageList reads still images from disk one by one.
type StaticImageList struct {
	paths []string
	next  int
}

// NewStaticImageList creates a source over paths, read in order.
func NewStaticImageList(paths []string) *StaticImageList {
	return &StaticImageList{paths: paths}
}

// Read loads the next readable image. Unreadable files are skipped with a warning.
func (s *StaticImageList) Read(frame *gocv.Mat) bool {
	for s.next < len(s.paths) {
		path := s.paths[s.next]
		s.next++

		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			logger.Log().Warn("skipping unreadable image", zap.String("path", path))
			continue
		}
		img.CopyTo(frame)
		img.Close()
		return true
	}
	return false
}

// Streaming returns false.
func (s *StaticImageList) Streaming() bool { return false }

// Close is a no-op.
func (s *StaticImageList) Close() error { return nil }

// Remaining returns the number of paths not yet read.
func (s *StaticImageList) Remaining() int {
	return len(s.paths) - s.next
}

// capture wraps a VideoCapture so it is closed exactly once.
type capture struct {
	vc   *gocv.VideoCapture
	once sync.Once
	err  error
}

func newCapture(vc *gocv.VideoCapture) *capture {
	return &capture{vc: vc}
}

func (c *capture) read(frame *gocv.Mat) bool {
	if ok := c.vc.Read(frame); !ok {
		return false
	}
	return !frame.Empty()
}

func (c *capture) close() error {
	c.once.Do(func() {
		c.err = c.vc.Close()
	})
	return c.err
}

// VideoStream reads frames from a video file.
type VideoStream struct {
	capture *capture
}

// Read returns false at the end of the file.
func (v *VideoStream) Read(frame *gocv.Mat) bool { return v.capture.read(frame) }

// Streaming returns true.
func (v *VideoStream) Streaming() bool { return true }

// Close releases the capture.
func (v *VideoStream) Close() error { return v.capture.close() }

// CameraStream reads frames from a capture device.
type CameraStream struct {
	capture *capture
}

// Read returns false when the device stops delivering frames.
func (c *CameraStream) Read(frame *gocv.Mat) bool { return c.capture.read(frame) }

// Streaming returns true.
func (c *CameraStream) Streaming() bool { return true }

// Close releases the device.
func (c *CameraStream) Close() error { return c.capture.close() }
