// Package yolo - Decoder for single-output YOLO ONNX exports.
package yolo

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo/models/model"
)

// YOLO decodes [1, 6, N] outputs: four box values (cx, cy, w, h), a score and a class id per candidate.
type YOLO struct {
	size   int
	config model.Config
}

// NewModel creates a YOLO decoder.
//
// Arguments:
//   - args: InputSize must be positive. Thresholds are taken from args.Config.
//
// Returns:
//   - *YOLO: The decoder.
//   - error: An error if the input size or a threshold is out of range.
func NewModel(args model.NewModelArgs) (*YOLO, error) {
	if args.InputSize <= 0 {
		return nil, errors.Errorf("input size must be positive, got %d", args.InputSize)
	}
	if c := args.Config.ConfidenceThreshold; c < 0 || c > 1 {
		return nil, errors.Errorf("confidence threshold must be in [0, 1], got %v", c)
	}
	if t := args.Config.NMS.IoUThreshold; t < 0 || t > 1 {
		return nil, errors.Errorf("IoU threshold must be in [0, 1], got %v", t)
	}

	return &YOLO{size: args.InputSize, config: args.Config}, nil
}

// Name returns model.ModelNameYOLO.
func (m *YOLO) Name() model.Name {
	return model.ModelNameYOLO
}

// InputSize returns S.
func (m *YOLO) InputSize() int {
	return m.size
}

// Config returns the decoding thresholds.
func (m *YOLO) Config() model.Config {
	return m.config
}
