package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/profiler"
)

// MockDetector returns one detection per call and fails every failEvery-th call.
type MockDetector struct {
	stages    *profiler.Stages
	calls     int
	failEvery int
	closed    bool
}

func (m *MockDetector) DetectMat(ctx context.Context, frame gocv.Mat) ([]detector.Detection, error) {
	m.calls++
	m.stages.Record(profiler.StagePreprocess, time.Millisecond)
	m.stages.Record(profiler.StageInference, 3*time.Millisecond)
	if m.failEvery > 0 && m.calls%m.failEvery == 0 {
		return nil, errors.New("inference failed")
	}
	m.stages.Record(profiler.StagePostprocess, time.Millisecond)
	return []detector.Detection{{
		Detection: postprocess.Detection{Box: image.Rect(0, 0, 4, 4), Score: 0.9},
		Label:     "person",
	}}, nil
}

func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}

func newFrames(t *testing.T, n int) []gocv.Mat {
	t.Helper()
	frames := make([]gocv.Mat, n)
	for i := range frames {
		frames[i] = gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
		f := frames[i]
		t.Cleanup(func() { f.Close() })
	}
	return frames
}

func TestNewSuite(t *testing.T) {
	factory := func(Scenario, *profiler.Stages) (Detector, error) { return &MockDetector{}, nil }

	_, err := NewSuite(nil, newFrames(t, 1))
	assert.Error(t, err)
	_, err = NewSuite(factory, nil)
	assert.Error(t, err)

	suite, err := NewSuite(factory, newFrames(t, 1))
	require.NoError(t, err)
	assert.Empty(t, suite.Scenarios())
	assert.Empty(t, suite.Results())
}

func TestRunScenario(t *testing.T) {
	var mock *MockDetector
	factory := func(s Scenario, stages *profiler.Stages) (Detector, error) {
		mock = &MockDetector{stages: stages, failEvery: 4}
		return mock, nil
	}
	suite, err := NewSuite(factory, newFrames(t, 3))
	require.NoError(t, err)

	s := NewScenarioBuilder("cpu").WithIterations(8).WithWarmupRuns(2).Build()
	m, err := suite.RunScenario(context.Background(), s)
	require.NoError(t, err)

	assert.True(t, mock.closed)
	assert.Equal(t, 10, mock.calls)
	// Calls 3 to 10 are measured and calls 4 and 8 fail.
	assert.Equal(t, 2, m.Errors)
	assert.Equal(t, 6, m.DetectionCount)
	assert.InDelta(t, 0.25, m.ErrorRate, 1e-9)
	assert.Greater(t, m.FramesPerSecond, 0.0)
	assert.Equal(t, s, m.Scenario)
	assert.Positive(t, m.CPUStats.NumCPU)

	// Warmup samples are dropped.
	assert.Equal(t, 3*time.Millisecond, m.StageMeans[profiler.StageInference])
	assert.Equal(t, time.Millisecond, m.StageMeans[profiler.StagePostprocess])
}

func TestRunScenario_Errors(t *testing.T) {
	factory := func(s Scenario, stages *profiler.Stages) (Detector, error) {
		if s.Provider.Backend == providers.BackendOpenVINO {
			return nil, errors.New("openvino runtime not installed")
		}
		return &MockDetector{stages: stages}, nil
	}
	suite, err := NewSuite(factory, newFrames(t, 1))
	require.NoError(t, err)

	_, err = suite.RunScenario(context.Background(), NewScenarioBuilder("zero").WithIterations(0).Build())
	assert.Error(t, err)

	_, err = suite.RunScenario(context.Background(), NewScenarioBuilder("ov").WithBackend(providers.BackendOpenVINO).Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openvino runtime not installed")

	_, err = suite.RunScenario(context.Background(), NewScenarioBuilder("unknown").WithBackend("tpu").Build())
	assert.ErrorIs(t, err, providers.ErrUnsupportedBackend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = suite.RunScenario(ctx, NewScenarioBuilder("cancelled").Build())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAll(t *testing.T) {
	factory := func(s Scenario, stages *profiler.Stages) (Detector, error) {
		if s.Provider.Optimization.IntraOpThreads == 2 {
			return nil, errors.New("session failed")
		}
		return &MockDetector{stages: stages}, nil
	}
	suite, err := NewSuite(factory, newFrames(t, 2))
	require.NoError(t, err)

	suite.AddScenarios(ThreadScenarios(providers.DefaultConfig(), []int{1, 2, 4}, 5, 1))
	require.Len(t, suite.Scenarios(), 3)

	results, err := suite.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "yolo_cpu_threads_1", results[0].Scenario.Name)
	assert.Equal(t, "yolo_cpu_threads_4", results[1].Scenario.Name)
	assert.Equal(t, 5, results[0].DetectionCount)

	best, ok := Best(results)
	require.True(t, ok)
	assert.Contains(t, []string{"yolo_cpu_threads_1", "yolo_cpu_threads_4"}, best.Scenario.Name)

	_, ok = Best(nil)
	assert.False(t, ok)
}

func TestScenarioSets(t *testing.T) {
	base := providers.DefaultConfig()

	byProvider := ProviderScenarios(base, []providers.Backend{providers.BackendCPU, providers.BackendOpenVINO}, 10, 0)
	require.Len(t, byProvider.Scenarios, 2)
	assert.Equal(t, "yolo_openvino", byProvider.Scenarios[1].Name)
	assert.Equal(t, providers.BackendOpenVINO, byProvider.Scenarios[1].Provider.Backend)
	assert.Equal(t, providers.BackendCPU, base.Backend)

	threads := ThreadScenarios(base, []int{1, 4}, 20, 2)
	require.Len(t, threads.Scenarios, 2)
	assert.Equal(t, "yolo_cpu_threads_4", threads.Scenarios[1].Name)
	assert.Equal(t, 4, threads.Scenarios[1].Provider.Optimization.IntraOpThreads)
	assert.Equal(t, 0, base.Optimization.IntraOpThreads)
	assert.Equal(t, 20, threads.Scenarios[0].Iterations)
	assert.Equal(t, 2, threads.Scenarios[0].WarmupRuns)

	s := NewScenarioBuilder("x").Build()
	assert.Equal(t, 100, s.Iterations)
	assert.Equal(t, 10, s.WarmupRuns)
	assert.Equal(t, providers.BackendCPU, s.Provider.Backend)
}

func TestLoadScenarioSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: nightly
scenarios:
  - name: ov
    provider:
      backend: openvino
      options:
        num_of_threads: "4"
      optimization:
        graph_level: all
    iterations: 50
  - provider:
      optimization:
        intra_op_threads: 2
`), 0o644))

	set, err := LoadScenarioSet(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", set.Name)
	require.Len(t, set.Scenarios, 2)

	ov := set.Scenarios[0]
	assert.Equal(t, providers.BackendOpenVINO, ov.Provider.Backend)
	assert.Equal(t, "4", ov.Provider.Options["num_of_threads"])
	assert.Equal(t, providers.GraphLevelAll, ov.Provider.Optimization.GraphLevel)
	assert.Equal(t, 50, ov.Iterations)
	assert.Equal(t, 10, ov.WarmupRuns)

	cpu := set.Scenarios[1]
	assert.Equal(t, "scenario_2", cpu.Name)
	assert.Equal(t, providers.BackendCPU, cpu.Provider.Backend)
	assert.Equal(t, 2, cpu.Provider.Optimization.IntraOpThreads)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scenarios:\n  - provider:\n      backend: cuda\n"), 0o644))
	_, err = LoadScenarioSet(bad)
	assert.ErrorIs(t, err, providers.ErrUnsupportedBackend)

	gpu := filepath.Join(dir, "gpu.yaml")
	require.NoError(t, os.WriteFile(gpu, []byte("scenarios:\n  - provider:\n      backend: openvino\n      options:\n        device_type: GPU\n"), 0o644))
	_, err = LoadScenarioSet(gpu)
	assert.ErrorIs(t, err, providers.ErrUnsupportedDevice)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("name: none\n"), 0o644))
	_, err = LoadScenarioSet(empty)
	assert.Error(t, err)

	_, err = LoadScenarioSet(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func sampleResults() []PerformanceMetrics {
	return []PerformanceMetrics{{
		Scenario:        NewScenarioBuilder("yolo_cpu").WithIterations(10).Build(),
		FramesPerSecond: 42.5,
		StageMeans:      map[profiler.Stage]time.Duration{profiler.StageInference: 20 * time.Millisecond},
		DetectionCount:  7,
		MemoryStats:     MemoryMetrics{AllocBytes: 3 * 1024 * 1024},
	}}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sampleResults(), false)
	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "INFERENCE")
	assert.Contains(t, out, "yolo_cpu")
	assert.Contains(t, out, "42.50")
	assert.Contains(t, out, "20ms")
	assert.Contains(t, out, "3.00")

	buf.Reset()
	Render(&buf, sampleResults(), true)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "yolo_cpu,cpu,10,42.50,-,20ms,-,7,0,3.00"), lines[1])
}

func TestSaveResults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := SaveResults(dir, sampleResults(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "benchmark_results_2026-01-02_03-04-05.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.InDelta(t, 42.5, got[0]["frames_per_second"], 1e-9)
	assert.Contains(t, got[0], "stage_means")
}
