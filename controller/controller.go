// Package controller - Detection run configuration and the frame loop that routes frames from a
// source through the detector to the display, the recorder and the report.
package controller

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/annotate"
	"github.com/nvr-ai/go-yolo/annotations"
	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/nvr-ai/go-yolo/video"
)

// Loop drives one detection run. Build it with NewLoop and call Run once.
type Loop struct {
	source   video.Source
	detector *detector.Detector
	display  video.Display
	recorder video.Recorder
	report   *annotations.Writer

	resolution   *images.Resolution
	keys         KeyMap
	snapshotFile string
	streamWait   int

	frameRate *profiler.FrameRate
	stages    *profiler.Stages
	frames    int
}

// LoopConfig holds the parts of a Loop.
type LoopConfig struct {
	// Source yields frames. The loop closes it.
	Source video.Source
	// Detector runs on every frame.
	Detector *detector.Detector
	// Display shows annotated frames. Defaults to video.Headless. The loop closes it.
	Display video.Display
	// Recorder, when set, receives every annotated frame. The loop closes it.
	Recorder video.Recorder
	// Report, when set, receives the per-frame detection report.
	Report *annotations.Writer
	// Resolution, when set, is the display size. Otherwise frames are shown at native size.
	Resolution *images.Resolution
	// Keys maps key presses to commands. Defaults to DetectionKeys.
	Keys KeyMap
	// SnapshotFile is where the snapshot command writes. Defaults to capture.png.
	SnapshotFile string
	// StreamWaitMS is the key wait for video and camera sources. Image sources wait forever.
	StreamWaitMS int
	// FPSWindow is the number of frame rates averaged for the FPS counter.
	FPSWindow int
	// Stages, when set, receives the annotate stage timing. Pass the same value to the detector for the others.
	Stages *profiler.Stages
}

// Summary describes a finished run.
type Summary struct {
	// Frames is the number of frames processed.
	Frames int
	// AverageFPS is the mean of the frame-rate window at exit.
	AverageFPS float64
	// Quit reports whether the user ended the run.
	Quit bool
}

// NewLoop creates a loop.
//
// Arguments:
//   - cfg: The loop parts. Source and Detector are required.
//
// Returns:
//   - *Loop: The loop.
//   - error: An error if a required part is missing.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Source == nil {
		return nil, errors.New("loop requires a source")
	}
	if cfg.Detector == nil {
		return nil, errors.New("loop requires a detector")
	}

	l := &Loop{
		source:       cfg.Source,
		detector:     cfg.Detector,
		display:      cfg.Display,
		recorder:     cfg.Recorder,
		report:       cfg.Report,
		resolution:   cfg.Resolution,
		keys:         cfg.Keys,
		snapshotFile: cfg.SnapshotFile,
		streamWait:   cfg.StreamWaitMS,
		frameRate:    profiler.NewFrameRate(cfg.FPSWindow),
		stages:       cfg.Stages,
	}
	if l.display == nil {
		l.display = video.Headless{}
	}
	if l.keys == nil {
		l.keys = DetectionKeys
	}
	if l.snapshotFile == "" {
		l.snapshotFile = "capture.png"
	}
	if l.stages == nil {
		l.stages = profiler.NewStages()
	}
	return l, nil
}

// FrameRate returns the frame-rate window.
func (l *Loop) FrameRate() *profiler.FrameRate {
	return l.frameRate
}

// Run processes frames until the source is exhausted, the user quits or ctx is cancelled.
//
// Source, display and recorder are released before Run returns, whatever the outcome.
//
// Arguments:
//   - ctx: Stops the loop between frames.
//
// Returns:
//   - Summary: The frame count and average frame rate.
//   - error: An inference, report or recording error.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	defer l.release()

	frame := gocv.NewMat()
	defer frame.Close()
	display := gocv.NewMat()
	defer display.Close()

	streaming := l.source.Streaming()
	wait := 0
	if streaming {
		wait = l.streamWait
	}

	summary := Summary{}
	for {
		if ctx.Err() != nil {
			logger.Log().Info("interrupted", zap.Int("frames", l.frames))
			break
		}

		start := time.Now()
		if !l.source.Read(&frame) {
			if streaming {
				logger.Log().Info("end of video or camera stream", zap.Int("frames", l.frames))
			} else {
				logger.Log().Info("all images processed", zap.Int("frames", l.frames))
			}
			break
		}
		l.frames++

		size := image.Pt(frame.Cols(), frame.Rows())
		detections, err := l.detector.DetectMat(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				logger.Log().Info("interrupted", zap.Int("frames", l.frames))
				break
			}
			return l.summary(summary), errors.Wrapf(err, "frame %d", l.frames)
		}
		raw := detector.Raw(detections)

		if l.report != nil {
			if err := l.report.WriteFrame(l.frames, size, raw, l.detector.Labels()); err != nil {
				return l.summary(summary), errors.Wrap(err, "failed to write report")
			}
		}

		l.stages.Time(profiler.StageAnnotate, func() {
			l.prepareDisplay(frame, &display)
			annotate.DrawDetections(&display, raw, l.detector.Labels(), size)
		})

		l.frameRate.Observe(time.Since(start))
		annotate.DrawOverlay(&display, l.frameRate.Average(), streaming, len(detections))

		l.display.Show(display)
		if l.recorder != nil {
			if err := l.recorder.Write(display); err != nil {
				return l.summary(summary), errors.Wrap(err, "failed to record frame")
			}
		}

		switch l.keys.Parse(l.display.WaitKey(wait)) {
		case CommandQuit:
			summary.Quit = true
			return l.summary(summary), nil
		case CommandPause:
			l.display.WaitKey(0)
		case CommandSnapshot:
			if err := video.SaveSnapshot(l.snapshotFile, display); err != nil {
				logger.Log().Warn("snapshot failed", zap.String("path", l.snapshotFile), zap.Error(err))
			} else {
				logger.Log().Info("snapshot saved", zap.String("path", l.snapshotFile))
			}
		}
	}

	return l.summary(summary), nil
}

func (l *Loop) summary(s Summary) Summary {
	s.Frames = l.frames
	s.AverageFPS = l.frameRate.Average()
	return s
}

// prepareDisplay copies frame into display, resized to the display resolution when one is set.
func (l *Loop) prepareDisplay(frame gocv.Mat, display *gocv.Mat) {
	if l.resolution == nil {
		frame.CopyTo(display)
		return
	}
	gocv.Resize(frame, display, l.resolution.Point(), 0, 0, gocv.InterpolationLinear)
}

func (l *Loop) release() {
	if err := l.source.Close(); err != nil {
		logger.Log().Warn("failed to close source", zap.Error(err))
	}
	if l.recorder != nil {
		if err := l.recorder.Close(); err != nil {
			logger.Log().Warn("failed to close recorder", zap.Error(err))
		}
	}
	if err := l.display.Close(); err != nil {
		logger.Log().Warn("failed to close display", zap.Error(err))
	}
}
