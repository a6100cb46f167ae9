// Command replay plays a video with its detection report drawn over each frame.
package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/annotate"
	"github.com/nvr-ai/go-yolo/annotations"
	"github.com/nvr-ai/go-yolo/controller"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/video"
)

func main() {
	parser := argparse.NewParser("replay", "Play a video with its detection report overlaid")
	input := parser.String("i", "video", &argparse.Options{Help: "Video file", Required: true})
	report := parser.String("r", "report", &argparse.Options{Help: "Detection report (default: the video path with a .txt extension)", Default: ""})
	delay := parser.Int("d", "delay", &argparse.Options{Help: "Milliseconds to wait between frames", Default: 30})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Verbose development logging", Default: false})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if err := logger.Init(*verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	reportPath := *report
	if reportPath == "" {
		reportPath = annotations.SidecarPath(*input)
	}

	if err := replay(*input, reportPath, *delay); err != nil {
		logger.Log().Fatal("replay failed", zap.Error(err))
	}
}

func replay(videoPath, reportPath string, delay int) error {
	in, err := video.Resolve(videoPath)
	if err != nil {
		return err
	}
	if in.Kind != video.KindVideo {
		return errors.Errorf("%s is not a video file", videoPath)
	}

	ann, err := annotations.Load(reportPath)
	if err != nil {
		return err
	}
	logger.Log().Info("loaded report", zap.String("path", reportPath), zap.Int("frames", ann.Len()))

	src, err := video.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()

	window := video.NewWindow("Annotation replay")
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	display := gocv.NewMat()
	defer display.Close()

	index := 0
	paused := false
	for {
		if !paused {
			if !src.Read(&frame) {
				logger.Log().Info("end of video", zap.Int("frames", index))
				return nil
			}
			index++

			frame.CopyTo(&display)
			if f, ok := ann.Get(index); ok {
				drawFrame(&display, f)
			}
			window.Show(display)
		}

		wait := delay
		if paused {
			wait = 0
		}
		switch controller.ReplayKeys.Parse(window.WaitKey(wait)) {
		case controller.CommandQuit:
			return nil
		case controller.CommandPause:
			paused = !paused
		case controller.CommandSnapshot:
			path := snapshotPath(videoPath, index)
			if err := video.SaveSnapshot(path, frame); err != nil {
				logger.Log().Warn("snapshot failed", zap.String("path", path), zap.Error(err))
			} else {
				logger.Log().Info("snapshot saved", zap.String("path", path))
			}
		}
	}
}

// drawFrame draws the report entries of one frame onto img, scaling normalized bounds to the image size.
func drawFrame(img *gocv.Mat, f annotations.FrameAnnotations) {
	size := image.Pt(img.Cols(), img.Rows())
	for _, l := range f.Labels {
		box := l.Box(size)
		annotate.DrawBox(img, box, annotate.LabelText(l.Label, float32(l.Confidence)), annotate.ColorFor(l.ID))
	}
	annotate.DrawOverlay(img, 0, false, len(f.Labels))
}

// snapshotPath names a saved frame after the video: clip.mp4, frame 12 gives clip_000012.jpg.
func snapshotPath(videoPath string, index int) string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	return fmt.Sprintf("%s_%06d.jpg", base, index)
}
