package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo/profiler"
)

// Render writes one row per result as a table, or as CSV when csv is set.
func Render(w io.Writer, results []PerformanceMetrics, csv bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{
		"Scenario", "Provider", "Iterations", "FPS",
		"Preprocess", "Inference", "Postprocess",
		"Detections", "Errors", "Alloc MB",
	})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Scenario.Name,
			r.Scenario.Provider.String(),
			r.Scenario.Iterations,
			fmt.Sprintf("%.2f", r.FramesPerSecond),
			formatStage(r, profiler.StagePreprocess),
			formatStage(r, profiler.StageInference),
			formatStage(r, profiler.StagePostprocess),
			r.DetectionCount,
			r.Errors,
			fmt.Sprintf("%.2f", r.MemoryStats.AllocMB()),
		})
	}
	if csv {
		t.RenderCSV()
		return
	}
	t.Render()
}

func formatStage(r PerformanceMetrics, stage profiler.Stage) string {
	d, ok := r.StageMeans[stage]
	if !ok {
		return "-"
	}
	return d.Round(time.Microsecond).String()
}

// WriteJSON writes results as indented JSON.
func WriteJSON(w io.Writer, results []PerformanceMetrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(results), "failed to encode benchmark results")
}

// SaveResults writes results to a timestamped JSON file in dir.
//
// Returns:
//   - string: The path of the written file.
//   - error: An error if dir cannot be created or the file cannot be written.
func SaveResults(dir string, results []PerformanceMetrics, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", dir)
	}

	path := filepath.Join(dir, fmt.Sprintf("benchmark_results_%s.json", now.Format("2006-01-02_15-04-05")))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	if err := WriteJSON(f, results); err != nil {
		return "", err
	}
	return path, nil
}
