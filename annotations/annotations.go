// Package annotations - The per-frame detection report: writing, parsing and comparing.
//
// A report is plain text. Each frame starts with a header line followed by a
// blank line, then one line per detection with coordinates normalized by the
// frame size:
//
//	Frame count: 1 Width: 1280 Heigth: 720
//
//	Label: person ID: 0 Confidence: 0.91 Detection count: 1 Position: center=(0.5000, 0.5000) Bounds: xmin=0.4000, ymin=0.3000, xmax=0.6000, ymax=0.7000
//
// "Heigth" is spelled as existing logs spell it; the parser accepts both spellings.
package annotations

import (
	"image"
	"sort"
)

// FrameLabel is one detection line of a report.
type FrameLabel struct {
	Label          string
	ID             int
	Confidence     float64
	DetectionCount int
	CenterX        float64
	CenterY        float64
	XMin           float64
	YMin           float64
	XMax           float64
	YMax           float64
}

// Box maps the normalized bounds onto a frame of the given size, truncating toward zero.
func (l FrameLabel) Box(size image.Point) image.Rectangle {
	return image.Rect(
		int(l.XMin*float64(size.X)),
		int(l.YMin*float64(size.Y)),
		int(l.XMax*float64(size.X)),
		int(l.YMax*float64(size.Y)),
	)
}

// FrameAnnotations is one frame of a report.
type FrameAnnotations struct {
	Frame  int
	Size   image.Point
	Labels []FrameLabel
}

// MaxConfidence returns the highest confidence among the frame's detections of label.
func (f FrameAnnotations) MaxConfidence(label string) (float64, bool) {
	best, found := 0.0, false
	for _, l := range f.Labels {
		if l.Label != label {
			continue
		}
		if !found || l.Confidence > best {
			best = l.Confidence
			found = true
		}
	}
	return best, found
}

// Annotations is a parsed report, keyed by frame number.
type Annotations struct {
	frames map[int]FrameAnnotations
}

// Get returns the annotations for frame.
func (a *Annotations) Get(frame int) (FrameAnnotations, bool) {
	if a == nil {
		return FrameAnnotations{}, false
	}
	f, ok := a.frames[frame]
	return f, ok
}

// Len returns the number of frames.
func (a *Annotations) Len() int {
	if a == nil {
		return 0
	}
	return len(a.frames)
}

// Frames returns the frame numbers in ascending order.
func (a *Annotations) Frames() []int {
	if a == nil {
		return nil
	}
	frames := make([]int, 0, len(a.frames))
	for n := range a.frames {
		frames = append(frames, n)
	}
	sort.Ints(frames)
	return frames
}

// Labels returns every distinct label name in the report, sorted.
func (a *Annotations) Labels() []string {
	if a == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, f := range a.frames {
		for _, l := range f.Labels {
			seen[l.Label] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
