// Package profiler - Frame-rate and pipeline stage timing for the detection loop.
package profiler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bmharper/ringbuffer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFrameRateWindow is the number of recent frames averaged by FrameRate.
const DefaultFrameRateWindow = 200

// FrameRate is a rolling mean over the most recent per-frame rates.
//
// The window is bounded: once full, adding a rate evicts the oldest one.
type FrameRate struct {
	window ringbuffer.RingP[float64]
	size   int
}

// NewFrameRate creates a window over the last size frames.
//
// Arguments:
//   - size: The window length. Values below 1 use DefaultFrameRateWindow.
//
// Returns:
//   - *FrameRate: An empty window.
func NewFrameRate(size int) *FrameRate {
	if size < 1 {
		size = DefaultFrameRateWindow
	}
	return &FrameRate{window: ringbuffer.NewRingP[float64](ringSize(size)), size: size}
}

// ringSize returns the smallest power of two that holds size items plus the ring's empty slot.
func ringSize(size int) int {
	n := 2
	for n < size+1 {
		n <<= 1
	}
	return n
}

// Observe records one frame that took d. Non-positive durations are ignored.
func (f *FrameRate) Observe(d time.Duration) {
	if d <= 0 {
		return
	}
	f.Add(1 / d.Seconds())
}

// Add records one frame rate in frames per second.
func (f *FrameRate) Add(fps float64) {
	if f.window.Len() >= f.size {
		f.window.Next()
	}
	f.window.Add(fps)
}

// Len returns the number of rates currently in the window.
func (f *FrameRate) Len() int {
	return f.window.Len()
}

// Cap returns the window length.
func (f *FrameRate) Cap() int {
	return f.size
}

// Average returns the mean of the rates in the window, or 0 when empty.
func (f *FrameRate) Average() float64 {
	n := f.window.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += f.window.Peek(i)
	}
	return sum / float64(n)
}

// Stage names a step of the per-frame pipeline.
type Stage string

// Pipeline stages, in execution order.
const (
	StagePreprocess  Stage = "preprocess"
	StageInference   Stage = "inference"
	StagePostprocess Stage = "postprocess"
	StageAnnotate    Stage = "annotate"
)

// TimeTracker tracks operation timing statistics for one stage.
type TimeTracker struct {
	name      Stage
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Record adds one sample.
func (t *TimeTracker) Record(d time.Duration) {
	if t.count == 0 || d < t.minTime {
		t.minTime = d
	}
	if d > t.maxTime {
		t.maxTime = d
	}
	t.totalTime += d
	t.count++
}

// Count returns the number of samples.
func (t *TimeTracker) Count() int64 { return t.count }

// Min returns the shortest sample.
func (t *TimeTracker) Min() time.Duration { return t.minTime }

// Max returns the longest sample.
func (t *TimeTracker) Max() time.Duration { return t.maxTime }

// Mean returns the average sample, or 0 without samples.
func (t *TimeTracker) Mean() time.Duration {
	if t.count == 0 {
		return 0
	}
	return t.totalTime / time.Duration(t.count)
}

// MarshalLogObject renders the tracker as a zap object.
func (t *TimeTracker) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("count", t.count)
	enc.AddDuration("min", t.minTime)
	enc.AddDuration("max", t.maxTime)
	enc.AddDuration("mean", t.Mean())
	return nil
}

// Stages collects per-stage timings across frames. It is not safe for concurrent use.
type Stages struct {
	trackers map[Stage]*TimeTracker
	order    []Stage
}

// NewStages creates an empty collector.
func NewStages() *Stages {
	return &Stages{trackers: make(map[Stage]*TimeTracker)}
}

// Record adds a sample to stage.
func (s *Stages) Record(stage Stage, d time.Duration) {
	t, ok := s.trackers[stage]
	if !ok {
		t = &TimeTracker{name: stage}
		s.trackers[stage] = t
		s.order = append(s.order, stage)
	}
	t.Record(d)
}

// Reset drops every sample.
func (s *Stages) Reset() {
	s.trackers = make(map[Stage]*TimeTracker)
	s.order = nil
}

// Time runs fn and records its duration under stage.
func (s *Stages) Time(stage Stage, fn func()) {
	start := time.Now()
	fn()
	s.Record(stage, time.Since(start))
}

// Get returns the tracker for stage.
func (s *Stages) Get(stage Stage) (*TimeTracker, bool) {
	t, ok := s.trackers[stage]
	return t, ok
}

// Fields returns one zap field per stage, in first-recorded order.
func (s *Stages) Fields() []zap.Field {
	fields := make([]zap.Field, 0, len(s.order))
	for _, stage := range s.order {
		fields = append(fields, zap.Object(string(stage), s.trackers[stage]))
	}
	return fields
}

// String summarizes the stages by name, e.g. "inference: n=3 mean=12ms".
func (s *Stages) String() string {
	names := make([]string, 0, len(s.order))
	for _, stage := range s.order {
		names = append(names, string(stage))
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		t := s.trackers[Stage(name)]
		parts = append(parts, fmt.Sprintf("%s: n=%d mean=%s min=%s max=%s",
			name, t.count, t.Mean(), t.minTime, t.maxTime))
	}
	return strings.Join(parts, ", ")
}
