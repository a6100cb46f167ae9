package controller

import (
	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/profiler"
)

// NewDetector opens the model in c on the given provider and wraps it in a detector.
//
// The ONNX Runtime environment is initialized on first use; callers own
// inference.DestroyEnvironment.
//
// Arguments:
//   - c: The run configuration. Only the model, labels, thresholds and input settings are read.
//   - provider: The execution provider for the session.
//   - stages: Optional stage timings for the detector.
//
// Returns:
//   - *detector.Detector: The detector. Closing it closes the session.
//   - error: An error if the labels, model or session cannot be loaded.
func NewDetector(c *Config, provider providers.Config, stages *profiler.Stages) (*detector.Detector, error) {
	labels, err := models.LoadLabels(c.LabelsPath)
	if err != nil {
		return nil, err
	}

	session, err := inference.NewSession(inference.SessionConfig{
		ModelPath:        c.ModelPath,
		LibraryPath:      c.LibraryPath,
		DefaultInputSize: c.DefaultInputSize,
		Provider:         provider,
	})
	if err != nil {
		return nil, err
	}

	m, err := models.NewModel(model.NewModelArgs{
		Name:      model.ModelNameYOLO,
		InputSize: session.InputSize(),
		Config: model.Config{
			ConfidenceThreshold: c.ConfidenceThreshold,
			NMS:                 c.NMS(),
		},
	})
	if err != nil {
		session.Close()
		return nil, err
	}

	det, err := detector.New(detector.Config{
		Engine: session,
		Model:  m,
		Labels: labels,
		Stages: stages,
	})
	if err != nil {
		session.Close()
		return nil, err
	}
	return det, nil
}
