package benchmark

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/profiler"
)

// Detector is the part of detector.Detector a benchmark drives.
type Detector interface {
	DetectMat(ctx context.Context, frame gocv.Mat) ([]detector.Detection, error)
	Close() error
}

// Factory opens a detector for a scenario. The detector must record its
// stage timings into stages.
type Factory func(s Scenario, stages *profiler.Stages) (Detector, error)

// measuredStages are reported as per-iteration means.
var measuredStages = []profiler.Stage{
	profiler.StagePreprocess,
	profiler.StageInference,
	profiler.StagePostprocess,
}

// Suite manages and executes benchmark scenarios over a fixed set of frames.
type Suite struct {
	factory   Factory
	frames    []gocv.Mat
	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a suite that cycles through frames.
//
// Arguments:
//   - factory: Opens one detector per scenario.
//   - frames: The test frames. The suite does not close them.
//
// Returns:
//   - *Suite: The suite.
//   - error: An error if factory is nil or there are no frames.
func NewSuite(factory Factory, frames []gocv.Mat) (*Suite, error) {
	if factory == nil {
		return nil, errors.New("benchmark suite requires a detector factory")
	}
	if len(frames) == 0 {
		return nil, errors.New("benchmark suite requires at least one frame")
	}
	return &Suite{factory: factory, frames: frames}, nil
}

// AddScenario adds a scenario to the suite.
func (bs *Suite) AddScenario(s Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, s)
}

// AddScenarios adds every scenario in set.
func (bs *Suite) AddScenarios(set *ScenarioSet) {
	for _, s := range set.Scenarios {
		bs.AddScenario(s)
	}
}

// Scenarios returns the configured scenarios.
func (bs *Suite) Scenarios() []Scenario {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]Scenario(nil), bs.scenarios...)
}

// RunScenario opens a detector for s, runs the warmup and measured
// iterations, then closes the detector.
//
// Frame i of the run is frames[i % len(frames)]. Failed iterations count
// towards the error rate and are excluded from the detection count.
//
// Arguments:
//   - ctx: Cancelling ctx stops the run with ctx.Err().
//   - s: The scenario.
//
// Returns:
//   - *PerformanceMetrics: The metrics of the measured iterations.
//   - error: An error if the scenario is invalid, the detector cannot be opened, or ctx is done.
func (bs *Suite) RunScenario(ctx context.Context, s Scenario) (*PerformanceMetrics, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	stages := profiler.NewStages()
	det, err := bs.factory(s, stages)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %q", s.Name)
	}
	defer func() {
		if err := det.Close(); err != nil {
			logger.Log().Warn("failed to close detector", zap.String("scenario", s.Name), zap.Error(err))
		}
	}()

	for i := 0; i < s.WarmupRuns; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := det.DetectMat(ctx, bs.frames[i%len(bs.frames)]); err != nil {
			logger.Log().Debug("warmup iteration failed", zap.String("scenario", s.Name), zap.Error(err))
		}
	}
	stages.Reset()

	metrics := &PerformanceMetrics{
		Scenario:   s,
		Timestamp:  time.Now(),
		StageMeans: make(map[profiler.Stage]time.Duration, len(measuredStages)),
	}

	startMem := readMemStats()
	start := time.Now()
	for i := 0; i < s.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dets, err := det.DetectMat(ctx, bs.frames[i%len(bs.frames)])
		if err != nil {
			metrics.Errors++
			continue
		}
		metrics.DetectionCount += len(dets)
	}
	metrics.TotalDuration = time.Since(start)
	metrics.MemoryStats = memoryDelta(startMem, readMemStats())
	metrics.CPUStats = cpuMetrics()

	if secs := metrics.TotalDuration.Seconds(); secs > 0 {
		metrics.FramesPerSecond = float64(s.Iterations) / secs
	}
	metrics.ErrorRate = float64(metrics.Errors) / float64(s.Iterations)
	for _, stage := range measuredStages {
		if t, ok := stages.Get(stage); ok {
			metrics.StageMeans[stage] = t.Mean()
		}
	}
	return metrics, nil
}

// RunAll runs every scenario in order and keeps the results.
//
// A scenario that fails is logged and skipped. Cancelling ctx stops the
// remaining scenarios and returns ctx.Err().
func (bs *Suite) RunAll(ctx context.Context) ([]PerformanceMetrics, error) {
	for _, s := range bs.Scenarios() {
		metrics, err := bs.RunScenario(ctx, s)
		if err != nil {
			if ctx.Err() != nil {
				return bs.Results(), ctx.Err()
			}
			logger.Log().Warn("scenario failed", zap.String("scenario", s.Name), zap.Error(err))
			continue
		}

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()

		logger.Log().Info("scenario completed",
			zap.String("scenario", s.Name),
			zap.Stringer("provider", s.Provider),
			zap.Float64("fps", metrics.FramesPerSecond),
			zap.Int("errors", metrics.Errors),
		)
	}
	return bs.Results(), nil
}

// Results returns the completed scenarios.
func (bs *Suite) Results() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]PerformanceMetrics(nil), bs.results...)
}
