package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFrameRate_Average(t *testing.T) {
	f := NewFrameRate(3)
	assert.Zero(t, f.Average())
	assert.Equal(t, 3, f.Cap())

	f.Add(10)
	f.Add(20)
	assert.Equal(t, 2, f.Len())
	assert.InDelta(t, 15, f.Average(), 1e-9)

	f.Add(30)
	f.Add(40)
	// 10 was evicted.
	assert.Equal(t, 3, f.Len())
	assert.InDelta(t, 30, f.Average(), 1e-9)
}

func TestFrameRate_DefaultWindowEvictsOldest(t *testing.T) {
	f := NewFrameRate(0)
	require.Equal(t, DefaultFrameRateWindow, f.Cap())

	for i := 0; i < DefaultFrameRateWindow; i++ {
		f.Add(1)
	}
	for i := 0; i < 50; i++ {
		f.Add(5)
	}

	assert.Equal(t, DefaultFrameRateWindow, f.Len())
	want := (150*1.0 + 50*5.0) / 200
	assert.InDelta(t, want, f.Average(), 1e-9)
}

func TestFrameRate_WindowOfDefaultSize(t *testing.T) {
	f := NewFrameRate(DefaultFrameRateWindow)
	require.Equal(t, DefaultFrameRateWindow, f.Cap())

	f.Add(1000)
	for i := 0; i < DefaultFrameRateWindow-1; i++ {
		f.Add(10)
	}
	assert.Equal(t, DefaultFrameRateWindow, f.Len())
	assert.InDelta(t, (1000+199*10.0)/200, f.Average(), 1e-9)

	// The 1000 fps sample is the oldest and goes first.
	f.Add(10)
	assert.Equal(t, DefaultFrameRateWindow, f.Len())
	assert.InDelta(t, 10, f.Average(), 1e-9)
}

func TestFrameRate_SmallWindows(t *testing.T) {
	for _, size := range []int{1, 2, 3, 4, 7, 8, 9} {
		f := NewFrameRate(size)
		for i := 1; i <= size+5; i++ {
			f.Add(float64(i))
		}
		assert.Equal(t, size, f.Len(), "size %d", size)
		// The window holds the last size values: 6..size+5.
		assert.InDelta(t, float64(size+11)/2, f.Average(), 1e-9, "size %d", size)
	}
}

func TestRingSize(t *testing.T) {
	tests := []struct {
		size, want int
	}{
		{1, 2},
		{2, 4},
		{3, 4},
		{4, 8},
		{200, 256},
		{255, 256},
		{256, 512},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ringSize(tt.size), "size %d", tt.size)
	}
}

func TestFrameRate_Observe(t *testing.T) {
	f := NewFrameRate(10)
	f.Observe(50 * time.Millisecond)
	f.Observe(0)
	f.Observe(-time.Second)

	assert.Equal(t, 1, f.Len())
	assert.InDelta(t, 20, f.Average(), 1e-9)
}

func TestStages(t *testing.T) {
	s := NewStages()
	s.Record(StageInference, 30*time.Millisecond)
	s.Record(StageInference, 10*time.Millisecond)
	s.Record(StagePreprocess, 2*time.Millisecond)
	s.Time(StageAnnotate, func() {})

	inf, ok := s.Get(StageInference)
	require.True(t, ok)
	assert.Equal(t, int64(2), inf.Count())
	assert.Equal(t, 10*time.Millisecond, inf.Min())
	assert.Equal(t, 30*time.Millisecond, inf.Max())
	assert.Equal(t, 20*time.Millisecond, inf.Mean())

	_, ok = s.Get(StagePostprocess)
	assert.False(t, ok)

	ann, ok := s.Get(StageAnnotate)
	require.True(t, ok)
	assert.Equal(t, int64(1), ann.Count())

	assert.Contains(t, s.String(), "inference: n=2 mean=20ms min=10ms max=30ms")
}

func TestStages_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	s := NewStages()
	s.Record(StagePreprocess, time.Millisecond)
	s.Record(StageInference, 4*time.Millisecond)
	log.Info("pipeline timing", s.Fields()...)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	require.Contains(t, ctx, "preprocess")
	require.Contains(t, ctx, "inference")

	inf, ok := ctx["inference"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(1), inf["count"])
	assert.Equal(t, 4*time.Millisecond, inf["mean"])
}

func TestTimeTracker_Empty(t *testing.T) {
	var tr TimeTracker
	assert.Zero(t, tr.Mean())
	assert.Zero(t, tr.Count())
}

func TestStages_Reset(t *testing.T) {
	s := NewStages()
	s.Record(StageInference, time.Millisecond)
	s.Reset()

	_, ok := s.Get(StageInference)
	assert.False(t, ok)
	assert.Empty(t, s.Fields())

	s.Record(StageInference, 2*time.Millisecond)
	tr, ok := s.Get(StageInference)
	require.True(t, ok)
	assert.Equal(t, int64(1), tr.Count())
}
