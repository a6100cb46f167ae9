// Package postprocess - Postprocessing utilities for detection models.
package postprocess

import (
	"image"
	"sort"

	"github.com/nvr-ai/go-yolo/images"
)

// Result represents a single candidate in model space.
type Result struct {
	// The bounding box of the result, in S×S model input coordinates.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}

// Detection is a kept result mapped onto the original frame.
type Detection struct {
	// Box in integer pixel coordinates, clamped to the frame.
	Box image.Rectangle
	// Score is the confidence in [0, 1].
	Score float32
	// ClassID indexes the label set.
	ClassID int
}

// Center returns the center of the detection box normalized by the frame size.
func (d Detection) Center(frame image.Point) (float64, float64) {
	if frame.X <= 0 || frame.Y <= 0 {
		return 0, 0
	}
	cx := float64(d.Box.Min.X+d.Box.Max.X) / 2 / float64(frame.X)
	cy := float64(d.Box.Min.Y+d.Box.Max.Y) / 2 / float64(frame.Y)
	return cx, cy
}

// FilterByScore keeps results whose score is strictly greater than threshold.
//
// Arguments:
//   - results: The candidates to filter. The slice is not modified.
//   - threshold: The minimum exclusive confidence.
//
// Returns:
//   - []Result: The survivors, in their original order.
func FilterByScore(results []Result, threshold float32) []Result {
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score > threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// SortByScore orders results by descending score in place. Equal scores keep their relative order.
func SortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
