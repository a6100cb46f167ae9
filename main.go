package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo/annotations"
	"github.com/nvr-ai/go-yolo/controller"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/nvr-ai/go-yolo/video"
)

// unset marks a numeric flag that was not given on the command line.
const unset = -1.0

func main() {
	parser := argparse.NewParser("go-yolo", "Run a YOLO ONNX detector on an image, a folder of images, a video or a camera")
	modelPath := parser.String("", "model", &argparse.Options{Help: "Path to the YOLO .onnx model", Required: true})
	dataPath := parser.String("", "data", &argparse.Options{Help: "Path to the YAML file with class names", Required: true})
	source := parser.String("", "source", &argparse.Options{Help: "Image file, image folder, video file or camera index (e.g. 0)", Required: true})
	thresh := parser.Float("", "thresh", &argparse.Options{Help: "Minimum confidence threshold", Default: 0.5})
	resolution := parser.String("", "resolution", &argparse.Options{Help: "Display resolution WxH (e.g. 640x480) or an alias such as 720p", Default: ""})
	record := parser.Flag("", "record", &argparse.Options{Help: "Record annotated frames (requires --resolution and a video or camera source)", Default: false})
	iou := parser.Float("", "iou", &argparse.Options{Help: "NMS IoU threshold (default 0.45, or iou_threshold from --config)", Default: unset})
	configFile := parser.String("", "config", &argparse.Options{Help: "Optional YAML settings file", Default: ""})
	headless := parser.Flag("", "headless", &argparse.Options{Help: "Do not open a window or wait for keys", Default: false})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Verbose development logging", Default: false})
	provider := parser.String("", "provider", &argparse.Options{Help: "Execution provider: cpu or openvino (default cpu, or provider from --config)", Default: ""})
	ortLib := parser.String("", "ort-lib", &argparse.Options{Help: "Path to the ONNX Runtime shared library (or set " + inference.LibraryEnv + ")", Default: ""})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if err := logger.Init(*verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := controller.DefaultConfig()
	if *configFile != "" {
		if err := cfg.LoadSettings(*configFile); err != nil {
			logger.Log().Fatal("invalid settings", zap.Error(err))
		}
	}
	cfg.ModelPath = *modelPath
	cfg.LabelsPath = *dataPath
	cfg.Source = *source
	cfg.ConfidenceThreshold = float32(*thresh)
	cfg.Record = *record
	cfg.LibraryPath = *ortLib
	cfg.Headless = cfg.Headless || *headless
	if *provider != "" {
		cfg.Provider = *provider
	}
	if *iou != unset {
		cfg.IoUThreshold = float32(*iou)
	}
	if *resolution != "" {
		res, err := images.ParseResolution(*resolution)
		if err != nil {
			logger.Log().Fatal("invalid resolution", zap.String("resolution", *resolution), zap.Error(err))
		}
		cfg.Resolution = &res
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log().Fatal("detection failed", zap.Error(err))
	}
}

// run wires the pipeline for cfg and drives it to completion.
func run(ctx context.Context, cfg controller.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	input, err := video.Resolve(cfg.Source)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSource(input); err != nil {
		return err
	}

	provider, err := cfg.ProviderConfig()
	if err != nil {
		return err
	}

	defer func() {
		if err := inference.DestroyEnvironment(); err != nil {
			logger.Log().Warn("failed to destroy onnxruntime environment", zap.Error(err))
		}
	}()
	stages := profiler.NewStages()
	det, err := controller.NewDetector(&cfg, provider, stages)
	if err != nil {
		return err
	}
	defer det.Close()

	src, err := video.Open(input)
	if err != nil {
		return err
	}

	var display video.Display = video.Headless{}
	if !cfg.Headless {
		display = video.NewWindow(cfg.WindowTitle)
	}

	var recorder video.Recorder
	if cfg.Record {
		rec, err := video.NewRecorder(video.RecorderConfig{
			Path:  cfg.RecordFile,
			Codec: cfg.RecordCodec,
			FPS:   cfg.RecordFPS,
			Size:  cfg.Resolution.Point(),
		})
		if err != nil {
			src.Close()
			display.Close()
			return err
		}
		recorder = rec
	}

	loop, err := controller.NewLoop(controller.LoopConfig{
		Source:       src,
		Detector:     det,
		Display:      display,
		Recorder:     recorder,
		Report:       annotations.NewWriter(os.Stdout),
		Resolution:   cfg.Resolution,
		Keys:         controller.DetectionKeys,
		SnapshotFile: cfg.SnapshotFile,
		StreamWaitMS: cfg.StreamWaitMS,
		FPSWindow:    cfg.FPSWindow,
		Stages:       stages,
	})
	if err != nil {
		return errors.Wrap(err, "failed to build frame loop")
	}

	logger.Log().Info("starting detection",
		zap.String("model", cfg.ModelPath),
		zap.Int("input_size", det.InputSize()),
		zap.Int("classes", det.Labels().Len()),
		zap.Stringer("source", input.Kind),
		zap.Float32("confidence_threshold", cfg.ConfidenceThreshold),
		zap.Float32("iou_threshold", cfg.IoUThreshold),
		zap.Bool("record", cfg.Record),
		zap.Stringer("provider", provider),
	)

	summary, err := loop.Run(ctx)
	fmt.Printf("Average pipeline FPS: %.2f\n", summary.AverageFPS)
	logger.Log().Info("pipeline timing", append([]zap.Field{zap.Int("frames", summary.Frames)}, stages.Fields()...)...)
	return err
}
