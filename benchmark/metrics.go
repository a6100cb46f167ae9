// Package benchmark - Throughput and latency measurement of the detector across execution providers.
package benchmark

import (
	"runtime"
	"time"

	"github.com/nvr-ai/go-yolo/profiler"
)

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario        Scenario                         `json:"scenario"`
	Timestamp       time.Time                        `json:"timestamp"`
	TotalDuration   time.Duration                    `json:"total_duration"`
	StageMeans      map[profiler.Stage]time.Duration `json:"stage_means"`
	FramesPerSecond float64                          `json:"frames_per_second"`
	MemoryStats     MemoryMetrics                    `json:"memory_stats"`
	CPUStats        CPUMetrics                       `json:"cpu_stats"`
	DetectionCount  int                              `json:"detection_count"`
	Errors          int                              `json:"errors"`
	ErrorRate       float64                          `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// CPUMetrics captures CPU usage statistics
type CPUMetrics struct {
	NumCPU     int `json:"num_cpu"`
	GOMAXPROCS int `json:"gomaxprocs"`
}

// AllocMB returns the live heap at the end of the run in MiB.
func (m MemoryMetrics) AllocMB() float64 {
	return float64(m.AllocBytes) / (1024 * 1024)
}

func readMemStats() runtime.MemStats {
	var ms runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&ms)
	return ms
}

func memoryDelta(start, end runtime.MemStats) MemoryMetrics {
	return MemoryMetrics{
		AllocBytes:      end.Alloc,
		TotalAllocBytes: end.TotalAlloc - start.TotalAlloc,
		SysBytes:        end.Sys,
		NumGC:           end.NumGC - start.NumGC,
		HeapAllocBytes:  end.HeapAlloc,
		HeapSysBytes:    end.HeapSys,
	}
}

func cpuMetrics() CPUMetrics {
	return CPUMetrics{NumCPU: runtime.NumCPU(), GOMAXPROCS: runtime.GOMAXPROCS(0)}
}

// Best returns the result with the highest frame rate.
func Best(results []PerformanceMetrics) (PerformanceMetrics, bool) {
	if len(results) == 0 {
		return PerformanceMetrics{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.FramesPerSecond > best.FramesPerSecond {
			best = r
		}
	}
	return best, true
}
