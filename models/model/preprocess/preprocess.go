// Package preprocess - Frame to tensor conversion for square-input detectors.
//
// Both entry points produce the same layout: RGB channel order, CHW planes,
// values scaled to [0, 1], resized to S×S without preserving aspect ratio.
package preprocess

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Preprocessor converts frames into [1, 3, S, S] float32 input tensors.
type Preprocessor struct {
	size int
}

// NewPreprocessor creates a preprocessor for an S×S model input.
//
// Arguments:
//   - size: S, usually read from the engine's input descriptor.
//
// Returns:
//   - *Preprocessor: The preprocessor.
//   - error: An error if size is not positive.
func NewPreprocessor(size int) (*Preprocessor, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid input size %d", size)
	}
	return &Preprocessor{size: size}, nil
}

// Size returns S.
func (p *Preprocessor) Size() int {
	return p.size
}

// FromMat converts an OpenCV frame.
//
// Arguments:
//   - frame: A BGR frame. Grayscale and BGRA frames are converted to BGR first.
//
// Returns:
//   - []float32: 3*S*S values owned by the caller.
//   - error: An error if the frame is empty or has an unsupported channel count.
//
// @example
//
//	data, err := p.FromMat(frame)
//	outputs, err := engine.Run(ctx, data)
func (p *Preprocessor) FromMat(frame gocv.Mat) ([]float32, error) {
	if frame.Empty() {
		return nil, errors.New("frame is empty")
	}

	src := frame
	switch frame.Channels() {
	case 3:
	case 1, 4:
		src = gocv.NewMat()
		defer src.Close()
		code := gocv.ColorGrayToBGR
		if frame.Channels() == 4 {
			code = gocv.ColorBGRAToBGR
		}
		gocv.CvtColor(frame, &src, code)
	default:
		return nil, errors.Errorf("unsupported channel count %d", frame.Channels())
	}

	blob := gocv.BlobFromImage(src, 1.0/255.0, image.Pt(p.size, p.size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read blob data")
	}
	if len(data) != 3*p.size*p.size {
		return nil, errors.Errorf("blob holds %d floats, expected %d", len(data), 3*p.size*p.size)
	}

	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// FromImage converts a decoded Go image.
//
// Arguments:
//   - img: Any image.Image. Alpha is ignored.
//
// Returns:
//   - []float32: 3*S*S values.
//   - error: An error if the image has no pixels.
func (p *Preprocessor) FromImage(img image.Image) ([]float32, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("image is empty")
	}

	s := p.size
	resized := resize.Resize(uint(s), uint(s), img, resize.Bilinear)
	bounds := resized.Bounds()

	plane := s * s
	data := make([]float32, 3*plane)
	red := data[0:plane]
	green := data[plane : 2*plane]
	blue := data[2*plane : 3*plane]

	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+s; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+s; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return data, nil
}
