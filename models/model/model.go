// Package model - Common definitions shared by every detection model.
package model

import (
	"image"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Name is the unique identifier of a model decoder.
type Name string

const (
	// ModelNameYOLO decodes single-output [1, 6, N] YOLO exports.
	ModelNameYOLO Name = "yolo"
)

// Config holds the decoding thresholds.
type Config struct {
	// ConfidenceThreshold drops candidates whose score is not strictly greater.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// NMS configures suppression.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms"`
}

// DefaultConfig returns a confidence threshold of 0.5 and class-agnostic NMS at IoU 0.45.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		NMS:                 postprocess.DefaultNMSConfig(),
	}
}

// Model turns raw network outputs into detections on the original frame.
type Model interface {
	// Name identifies the decoder.
	Name() Name
	// InputSize returns S, the side of the square model input.
	InputSize() int
	// PostProcess decodes the outputs of one frame of the given size.
	PostProcess(outputs []inference.Tensor, frame image.Point) []postprocess.Detection
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name      Name   `json:"name" yaml:"name"`
	InputSize int    `json:"input_size" yaml:"input_size"`
	Config    Config `json:"config" yaml:"config"`
}
