// Package annotate - Draws detections and counters onto display frames.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Palette holds the box colours, indexed by class id mod 10.
var Palette = [10]color.RGBA{
	{R: 87, G: 120, B: 164},
	{R: 228, G: 148, B: 68},
	{R: 209, G: 97, B: 93},
	{R: 133, G: 182, B: 178},
	{R: 106, G: 159, B: 88},
	{R: 231, G: 202, B: 96},
	{R: 168, G: 124, B: 159},
	{R: 241, G: 162, B: 169},
	{R: 150, G: 118, B: 98},
	{R: 184, G: 176, B: 172},
}

var (
	labelTextColor   = color.RGBA{}
	overlayTextColor = color.RGBA{R: 255, G: 255}
)

const (
	labelFont        = gocv.FontHersheySimplex
	labelScale       = 0.5
	labelThickness   = 1
	boxThickness     = 2
	overlayScale     = 0.7
	overlayThickness = 2
)

// ColorFor returns the palette colour for a class id. Negative ids wrap around.
func ColorFor(classID int) color.RGBA {
	n := len(Palette)
	return Palette[((classID%n)+n)%n]
}

// LabelText formats the tag drawn above a box, e.g. "person: 87%".
func LabelText(name string, score float32) string {
	return fmt.Sprintf("%s: %d%%", name, int(score*100))
}

// ScaleBox maps a box from frame coordinates onto a display of another size.
//
// Arguments:
//   - box: The box in frame pixels.
//   - frame: The frame size.
//   - display: The display size.
//
// Returns:
//   - image.Rectangle: The box in display pixels, truncated toward zero.
func ScaleBox(box image.Rectangle, frame, display image.Point) image.Rectangle {
	if frame.X <= 0 || frame.Y <= 0 || frame == display {
		return box
	}
	sx := float64(display.X) / float64(frame.X)
	sy := float64(display.Y) / float64(frame.Y)
	return image.Rectangle{
		Min: image.Pt(int(float64(box.Min.X)*sx), int(float64(box.Min.Y)*sy)),
		Max: image.Pt(int(float64(box.Max.X)*sx), int(float64(box.Max.Y)*sy)),
	}
}

// DrawBox draws one box with a filled label tag.
//
// The tag sits above the box and is pushed down when the box touches the top edge.
//
// Arguments:
//   - img: The display frame.
//   - box: The box in display pixels.
//   - label: The tag text.
//   - c: The box and tag colour.
func DrawBox(img *gocv.Mat, box image.Rectangle, label string, c color.RGBA) {
	gocv.Rectangle(img, box, c, boxThickness)

	size, baseline := gocv.GetTextSizeWithBaseline(label, labelFont, labelScale, labelThickness)
	top := box.Min.Y
	if top < size.Y+10 {
		top = size.Y + 10
	}
	tag := image.Rect(box.Min.X, top-size.Y-10, box.Min.X+size.X, top+baseline-10)
	gocv.Rectangle(img, tag, c, -1)
	gocv.PutText(img, label, image.Pt(box.Min.X, top-7), labelFont, labelScale, labelTextColor, labelThickness)
}

// DrawDetections draws every detection onto a display frame.
//
// Arguments:
//   - img: The display frame.
//   - detections: Boxes in frame pixels.
//   - labels: Class names.
//   - frame: The size of the frame the detections refer to.
func DrawDetections(img *gocv.Mat, detections []postprocess.Detection, labels *models.LabelSet, frame image.Point) {
	display := image.Pt(img.Cols(), img.Rows())
	for _, d := range detections {
		box := ScaleBox(d.Box, frame, display)
		DrawBox(img, box, LabelText(labels.Name(d.ClassID), d.Score), ColorFor(d.ClassID))
	}
}

// DrawOverlay draws the FPS and object counters in the top-left corner.
//
// Arguments:
//   - img: The display frame.
//   - fps: The rolling average frame rate.
//   - showFPS: Whether to draw the FPS line. Only streaming sources show it.
//   - objects: The number of detections in this frame.
func DrawOverlay(img *gocv.Mat, fps float64, showFPS bool, objects int) {
	if showFPS {
		gocv.PutText(img, fmt.Sprintf("FPS: %0.2f", fps), image.Pt(10, 20),
			labelFont, overlayScale, overlayTextColor, overlayThickness)
	}
	gocv.PutText(img, fmt.Sprintf("Number of objects: %d", objects), image.Pt(10, 40),
		labelFont, overlayScale, overlayTextColor, overlayThickness)
}
