// Command benchmark measures detector throughput on a set of images across execution providers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/benchmark"
	"github.com/nvr-ai/go-yolo/controller"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/nvr-ai/go-yolo/util"
)

func main() {
	parser := argparse.NewParser("benchmark", "Measure YOLO ONNX detector throughput on a set of images")
	modelPath := parser.String("", "model", &argparse.Options{Help: "Path to the YOLO .onnx model", Required: true})
	dataPath := parser.String("", "data", &argparse.Options{Help: "Path to the YAML file with class names", Required: true})
	imagesPath := parser.String("i", "images", &argparse.Options{Help: "Image file or folder of images", Required: true})
	backends := parser.String("p", "providers", &argparse.Options{Help: "Comma-separated execution providers to compare", Default: "cpu"})
	threads := parser.String("", "threads", &argparse.Options{Help: "Comma-separated intra-op thread counts to compare on the first provider", Default: ""})
	scenarioFile := parser.String("s", "scenarios", &argparse.Options{Help: "YAML scenario file (overrides --providers and --threads)", Default: ""})
	iterations := parser.Int("n", "iterations", &argparse.Options{Help: "Measured iterations per scenario", Default: 100})
	warmup := parser.Int("w", "warmup", &argparse.Options{Help: "Warmup iterations per scenario", Default: 10})
	thresh := parser.Float("", "thresh", &argparse.Options{Help: "Minimum confidence threshold", Default: 0.5})
	configFile := parser.String("", "config", &argparse.Options{Help: "Optional YAML settings file", Default: ""})
	outputDir := parser.String("o", "output", &argparse.Options{Help: "Directory for the JSON results (default: none)", Default: ""})
	csv := parser.Flag("", "csv", &argparse.Options{Help: "Write CSV instead of a table", Default: false})
	timeout := parser.Int("", "timeout", &argparse.Options{Help: "Overall timeout in seconds", Default: 1800})
	ortLib := parser.String("", "ort-lib", &argparse.Options{Help: "Path to the ONNX Runtime shared library (or set " + inference.LibraryEnv + ")", Default: ""})
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

	cfg := controller.DefaultConfig()
	if *configFile != "" {
		if err := cfg.LoadSettings(*configFile); err != nil {
			logger.Log().Fatal("invalid settings", zap.Error(err))
		}
	}
	cfg.ModelPath = *modelPath
	cfg.LabelsPath = *dataPath
	cfg.ConfidenceThreshold = float32(*thresh)
	cfg.LibraryPath = *ortLib
	if err := cfg.Validate(); err != nil {
		logger.Log().Fatal("invalid configuration", zap.Error(err))
	}

	set, err := scenarios(&cfg, *scenarioFile, *backends, *threads, *iterations, *warmup)
	if err != nil {
		logger.Log().Fatal("invalid scenarios", zap.Error(err))
	}

	frames, err := loadFrames(*imagesPath)
	if err != nil {
		logger.Log().Fatal("failed to load images", zap.Error(err))
	}
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(*timeout)*time.Second)
	defer cancel()

	defer func() {
		if err := inference.DestroyEnvironment(); err != nil {
			logger.Log().Warn("failed to destroy onnxruntime environment", zap.Error(err))
		}
	}()

	suite, err := benchmark.NewSuite(func(s benchmark.Scenario, stages *profiler.Stages) (benchmark.Detector, error) {
		det, err := controller.NewDetector(&cfg, s.Provider, stages)
		if err != nil {
			return nil, err
		}
		return det, nil
	}, frames)
	if err != nil {
		logger.Log().Fatal("failed to create suite", zap.Error(err))
	}
	suite.AddScenarios(set)

	logger.Log().Info("starting benchmark",
		zap.String("model", cfg.ModelPath),
		zap.Int("frames", len(frames)),
		zap.Int("scenarios", len(set.Scenarios)),
	)
	start := time.Now()
	results, err := suite.RunAll(ctx)
	if err != nil {
		logger.Log().Error("benchmark interrupted", zap.Error(err))
	}

	benchmark.Render(os.Stdout, results, *csv)
	if best, ok := benchmark.Best(results); ok {
		fmt.Printf("Best scenario: %s (%.2f FPS)\n", best.Scenario.Name, best.FramesPerSecond)
	}
	logger.Log().Info("benchmark completed", zap.Duration("elapsed", time.Since(start)))

	if *outputDir != "" {
		path, err := benchmark.SaveResults(*outputDir, results, time.Now())
		if err != nil {
			logger.Log().Fatal("failed to save results", zap.Error(err))
		}
		logger.Log().Info("results saved", zap.String("path", path))
	}
}

// scenarios builds the scenario set from a file or from the provider and thread lists.
func scenarios(cfg *controller.Config, file, backendList, threadList string, iterations, warmup int) (*benchmark.ScenarioSet, error) {
	if file != "" {
		return benchmark.LoadScenarioSet(file)
	}

	base, err := cfg.ProviderConfig()
	if err != nil {
		return nil, err
	}

	var backends []providers.Backend
	for _, name := range splitList(backendList) {
		b, err := providers.ParseBackend(name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	if len(backends) == 0 {
		backends = []providers.Backend{base.Backend}
	}

	if threadList != "" {
		var counts []int
		for _, s := range splitList(threadList) {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return nil, errors.Errorf("invalid thread count %q", s)
			}
			counts = append(counts, n)
		}
		base.Backend = backends[0]
		return benchmark.ThreadScenarios(base, counts, iterations, warmup), nil
	}
	return benchmark.ProviderScenarios(base, backends, iterations, warmup), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadFrames reads one image file, or every image in a folder.
func loadFrames(path string) ([]gocv.Mat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	paths := []string{path}
	if info.IsDir() {
		if paths, err = util.ListImageFiles(path); err != nil {
			return nil, err
		}
	}

	var frames []gocv.Mat
	for _, p := range paths {
		m := gocv.IMRead(p, gocv.IMReadColor)
		if m.Empty() {
			m.Close()
			logger.Log().Warn("skipping unreadable image", zap.String("path", p))
			continue
		}
		frames = append(frames, m)
	}
	if len(frames) == 0 {
		return nil, errors.Errorf("no readable images in %s", path)
	}
	return frames, nil
}
