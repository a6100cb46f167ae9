package postprocess

import (
	"github.com/nvr-ai/go-yolo/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 // Overlap above which the lower-scored box is suppressed.
	ClassAware   bool    // If true, suppress only within the same class.
}

// DefaultNMSConfig suppresses across classes at IoU 0.45.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: 0.45}
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// The highest remaining result is kept and every later result overlapping it by
// more than the threshold is discarded. With ClassAware unset, boxes of different
// classes suppress each other.
//
// Arguments:
//   - detections: Slice of results sorted by descending confidence.
//   - config: NMS configuration.
//
// Returns:
//   - []Result: The kept results, in selection order. Empty input returns an empty slice.
func ApplyGreedyNMS(detections []Result, config NMSConfig) []Result {
	n := len(detections)
	filtered := make([]Result, 0, n)
	if n == 0 {
		return filtered
	}

	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.Class != detections[j].Class {
				continue
			}
			if images.CalculateIoU(anchor.Box, detections[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
