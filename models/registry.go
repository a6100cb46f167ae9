// Package models - Label sets and the model registry.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolo"
)

// NewModel creates a decoder for the named model family.
//
// Arguments:
//   - args: The model name, input size and thresholds. An empty name selects YOLO.
//
// Returns:
//   - model.Model: The configured decoder.
//   - error: An error if the name is unknown or the arguments are invalid.
//
// Example:
//
// ```go
//
//	m, err := NewModel(model.NewModelArgs{
//	    Name:      model.ModelNameYOLO,
//	    InputSize: engine.InputSize(),
//	    Config:    model.DefaultConfig(),
//	})
//
// ```
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameYOLO, "":
		m, err := yolo.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Errorf("unknown model %q", args.Name)
	}
}
