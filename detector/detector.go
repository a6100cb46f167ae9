// Package detector - Embeddable YOLO detector: preprocessing, inference and decoding behind one call.
package detector

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/model/preprocess"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/profiler"
)

// Detection is a detection with its class name resolved.
type Detection struct {
	postprocess.Detection
	// Label is the class name, or "id<N>" when the label set has no entry for the class.
	Label string
}

// Config holds the parts a Detector is built from.
type Config struct {
	// Engine runs the network. The Detector takes ownership and closes it.
	Engine inference.Engine
	// Model decodes the engine outputs. Its input size must match the engine's.
	Model model.Model
	// Labels maps class ids to names.
	Labels *models.LabelSet
	// Stages, when set, receives per-stage timings for every call.
	Stages *profiler.Stages
}

// Detector runs the full detection pipeline on single frames. It is not safe for concurrent use.
type Detector struct {
	engine inference.Engine
	model  model.Model
	pre    *preprocess.Preprocessor
	labels *models.LabelSet
	stages *profiler.Stages
}

// New creates a detector.
//
// Arguments:
//   - cfg: The engine, model and labels. Engine and Model are required.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error if a part is missing or the input sizes disagree.
func New(cfg Config) (*Detector, error) {
	if cfg.Engine == nil {
		return nil, errors.New("detector requires an engine")
	}
	if cfg.Model == nil {
		return nil, errors.New("detector requires a model")
	}
	if cfg.Engine.InputSize() != cfg.Model.InputSize() {
		return nil, errors.Errorf("engine input size %d does not match model input size %d",
			cfg.Engine.InputSize(), cfg.Model.InputSize())
	}

	pre, err := preprocess.NewPreprocessor(cfg.Model.InputSize())
	if err != nil {
		return nil, err
	}

	labels := cfg.Labels
	if labels == nil {
		labels = models.NewLabelSet()
	}

	return &Detector{
		engine: cfg.Engine,
		model:  cfg.Model,
		pre:    pre,
		labels: labels,
		stages: cfg.Stages,
	}, nil
}

// Labels returns the label set.
func (d *Detector) Labels() *models.LabelSet {
	return d.labels
}

// InputSize returns S.
func (d *Detector) InputSize() int {
	return d.pre.Size()
}

// DetectMat detects objects in a BGR frame.
//
// Arguments:
//   - ctx: Cancels the call before inference starts.
//   - frame: The frame. It is not modified.
//
// Returns:
//   - []Detection: Detections in frame pixels, ordered by descending score.
//   - error: A preprocessing or inference error. Unrecognized outputs are not errors.
func (d *Detector) DetectMat(ctx context.Context, frame gocv.Mat) ([]Detection, error) {
	var (
		input []float32
		err   error
	)
	d.time(profiler.StagePreprocess, func() {
		input, err = d.pre.FromMat(frame)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to preprocess frame")
	}

	return d.detect(ctx, input, image.Pt(frame.Cols(), frame.Rows()))
}

// DetectImage detects objects in a Go image.
//
// Arguments:
//   - ctx: Cancels the call before inference starts.
//   - img: The image.
//
// Returns:
//   - []Detection: Detections in image pixels relative to img.Bounds().Min, ordered by descending score.
//   - error: A preprocessing or inference error.
func (d *Detector) DetectImage(ctx context.Context, img image.Image) ([]Detection, error) {
	var (
		input []float32
		err   error
	)
	d.time(profiler.StagePreprocess, func() {
		input, err = d.pre.FromImage(img)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to preprocess image")
	}

	return d.detect(ctx, input, img.Bounds().Size())
}

func (d *Detector) detect(ctx context.Context, input []float32, frame image.Point) ([]Detection, error) {
	var (
		outputs []inference.Tensor
		err     error
	)
	d.time(profiler.StageInference, func() {
		outputs, err = d.engine.Run(ctx, input)
	})
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	var raw []postprocess.Detection
	d.time(profiler.StagePostprocess, func() {
		raw = d.model.PostProcess(outputs, frame)
	})

	detections := make([]Detection, len(raw))
	for i, r := range raw {
		detections[i] = Detection{Detection: r, Label: d.labels.Name(r.ClassID)}
	}
	return detections, nil
}

func (d *Detector) time(stage profiler.Stage, fn func()) {
	if d.stages == nil {
		fn()
		return
	}
	d.stages.Time(stage, fn)
}

// Close releases the engine.
func (d *Detector) Close() error {
	return d.engine.Close()
}

// Raw strips the labels from detections.
func Raw(detections []Detection) []postprocess.Detection {
	raw := make([]postprocess.Detection, len(detections))
	for i, d := range detections {
		raw[i] = d.Detection
	}
	return raw
}
