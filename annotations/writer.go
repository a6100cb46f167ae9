package annotations

import (
	"bufio"
	"fmt"
	"image"
	"io"

	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Writer emits the detection report.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a report writer on w. Call Flush after each frame.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteFrame writes the header of frame n (1-based) and its detections.
//
// Arguments:
//   - n: The frame count.
//   - size: The original frame size used to normalize coordinates.
//   - detections: The frame's detections, in output order.
//   - labels: Class names.
//
// Returns:
//   - error: The first write error.
func (w *Writer) WriteFrame(n int, size image.Point, detections []postprocess.Detection, labels *models.LabelSet) error {
	if _, err := fmt.Fprintf(w.w, "Frame count: %d Width: %d Heigth: %d\n\n", n, size.X, size.Y); err != nil {
		return err
	}
	for i, d := range detections {
		if err := w.writeDetection(i+1, d, labels, size); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

func (w *Writer) writeDetection(count int, d postprocess.Detection, labels *models.LabelSet, size image.Point) error {
	fw, fh := float64(size.X), float64(size.Y)
	if fw <= 0 || fh <= 0 {
		fw, fh = 1, 1
	}
	cx, cy := d.Center(size)

	_, err := fmt.Fprintf(w.w,
		"Label: %s ID: %d Confidence: %.2f Detection count: %d Position: center=(%.4f, %.4f) "+
			"Bounds: xmin=%.4f, ymin=%.4f, xmax=%.4f, ymax=%.4f\n",
		labels.Name(d.ClassID), d.ClassID, d.Score, count, cx, cy,
		float64(d.Box.Min.X)/fw, float64(d.Box.Min.Y)/fh,
		float64(d.Box.Max.X)/fw, float64(d.Box.Max.Y)/fh,
	)
	return err
}

// Flush writes any buffered output.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
