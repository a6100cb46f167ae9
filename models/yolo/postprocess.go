package yolo

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Values per candidate: cx, cy, w, h, score, class id.
const candidateWidth = 6

// ErrUnsupportedOutput is returned by Decode when the outputs are not a single [1, 6, N] tensor.
var ErrUnsupportedOutput = errors.New("unsupported output shape")

// PostProcess decodes one frame of raw outputs into detections on the original frame.
//
// Unrecognized outputs are logged as a warning and yield no detections.
//
// Arguments:
//   - outputs: The model outputs. Only outputs[0] is read.
//   - frame: The original frame size (X = width, Y = height).
//
// Returns:
//   - []postprocess.Detection: Kept detections in NMS selection order. Never nil.
func (m *YOLO) PostProcess(outputs []inference.Tensor, frame image.Point) []postprocess.Detection {
	candidates, err := m.Decode(outputs)
	if err != nil {
		logger.Log().Warn("ignoring model output",
			zap.Error(err),
			zap.Strings("shapes", describeShapes(outputs)),
		)
		return []postprocess.Detection{}
	}

	kept := postprocess.FilterByScore(candidates, m.config.ConfidenceThreshold)
	postprocess.SortByScore(kept)
	kept = postprocess.ApplyGreedyNMS(kept, m.config.NMS)

	return Rescale(kept, m.size, frame)
}

// Decode validates outputs[0] and returns one model-space Result per candidate, in candidate order.
//
// Candidates with a non-finite box or score are dropped.
//
// Arguments:
//   - outputs: The model outputs.
//
// Returns:
//   - []postprocess.Result: Corner-form candidates in S×S space.
//   - error: ErrUnsupportedOutput (wrapped) if outputs[0] is not a consistent [1, 6, N] tensor.
func (m *YOLO) Decode(outputs []inference.Tensor) ([]postprocess.Result, error) {
	if len(outputs) == 0 {
		return nil, errors.Wrap(ErrUnsupportedOutput, "no outputs")
	}

	out := outputs[0]
	if len(out.Shape) != 3 || out.Shape[0] != 1 || out.Shape[1] != candidateWidth || out.Shape[2] < 0 {
		return nil, errors.Wrapf(ErrUnsupportedOutput, "expected [1 %d N], got %v", candidateWidth, out.Shape)
	}
	if !out.Consistent() {
		return nil, errors.Wrapf(ErrUnsupportedOutput, "shape %v holds %d values", out.Shape, len(out.Data))
	}

	n := int(out.Shape[2])
	if n == 0 {
		return []postprocess.Result{}, nil
	}

	rows, err := transpose(out.Data, n)
	if err != nil {
		return nil, err
	}

	results := make([]postprocess.Result, 0, n)
	for i := 0; i < n; i++ {
		row := rows[i*candidateWidth : (i+1)*candidateWidth]
		box := images.FromCenter(row[0], row[1], row[2], row[3])
		if !box.Finite() || math32.IsNaN(row[4]) || math32.IsInf(row[4], 0) {
			continue
		}
		results = append(results, postprocess.Result{
			Box:   box,
			Score: row[4],
			Class: int(row[5]),
		})
	}
	return results, nil
}

// transpose turns the candidate-minor [6, N] layout into N rows of 6 values.
func transpose(data []float32, n int) ([]float32, error) {
	backing := make([]float32, len(data))
	copy(backing, data)

	t := tensor.New(tensor.WithShape(candidateWidth, n), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "failed to transpose output")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "failed to transpose output")
	}

	rows, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("unexpected transposed data type %T", t.Data())
	}
	return rows, nil
}

// Rescale maps model-space results onto a frame: x/S*w and y/S*h, clamped, then floored.
//
// Arguments:
//   - results: The kept results, in S×S space.
//   - size: S.
//   - frame: The frame size (X = width, Y = height).
//
// Returns:
//   - []postprocess.Detection: One detection per result, in the same order.
func Rescale(results []postprocess.Result, size int, frame image.Point) []postprocess.Detection {
	detections := make([]postprocess.Detection, 0, len(results))
	if size <= 0 {
		return detections
	}

	s := float32(size)
	w, h := float32(frame.X), float32(frame.Y)
	for _, r := range results {
		box := images.Rect{
			X1: r.Box.X1 / s * w,
			Y1: r.Box.Y1 / s * h,
			X2: r.Box.X2 / s * w,
			Y2: r.Box.Y2 / s * h,
		}.Clamp(w, h)

		detections = append(detections, postprocess.Detection{
			Box:     box.Floor(),
			Score:   r.Score,
			ClassID: r.Class,
		})
	}
	return detections
}

func describeShapes(outputs []inference.Tensor) []string {
	shapes := make([]string, len(outputs))
	for i, o := range outputs {
		shapes[i] = fmt.Sprint(o.Shape)
	}
	return shapes
}
