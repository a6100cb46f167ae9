// Package images - Display and recording resolutions.
package images

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ResolutionAlias is a short, well-known name for a resolution (e.g. "720p").
type ResolutionAlias string

// Aliases accepted wherever a WxH string is accepted.
const (
	ResolutionAliasVGA   ResolutionAlias = "vga"
	ResolutionAlias540p  ResolutionAlias = "540p"
	ResolutionAlias720p  ResolutionAlias = "720p"
	ResolutionAlias1080p ResolutionAlias = "1080p"
	ResolutionAlias1440p ResolutionAlias = "1440p"
	ResolutionAlias4K    ResolutionAlias = "4k"
)

// Pixels describes the exact dimensions of a resolution.
type Pixels struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Resolution is a display or recording size.
type Resolution struct {
	Name   string `json:"name" yaml:"name"`
	Pixels Pixels `json:"pixels" yaml:"pixels"`
}

// Resolutions maps each alias to its dimensions.
var Resolutions = map[ResolutionAlias]Resolution{
	ResolutionAliasVGA:   {Name: "VGA", Pixels: Pixels{Width: 640, Height: 480}},
	ResolutionAlias540p:  {Name: "qHD 540p", Pixels: Pixels{Width: 960, Height: 540}},
	ResolutionAlias720p:  {Name: "HD 720p", Pixels: Pixels{Width: 1280, Height: 720}},
	ResolutionAlias1080p: {Name: "Full HD 1080p", Pixels: Pixels{Width: 1920, Height: 1080}},
	ResolutionAlias1440p: {Name: "QHD 1440p", Pixels: Pixels{Width: 2560, Height: 1440}},
	ResolutionAlias4K:    {Name: "4K UHD", Pixels: Pixels{Width: 3840, Height: 2160}},
}

// GetMegaPixels returns the pixel count in megapixels, rounded to two decimals.
func (r Resolution) GetMegaPixels() float64 {
	if r.Pixels.Width <= 0 || r.Pixels.Height <= 0 {
		return 0.0
	}
	mp := float64(r.Pixels.Width*r.Pixels.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// Point returns the dimensions as an image.Point (X = width, Y = height).
func (r Resolution) Point() image.Point {
	return image.Point{X: r.Pixels.Width, Y: r.Pixels.Height}
}

// String formats the resolution as WxH.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Pixels.Width, r.Pixels.Height)
}

// ParseResolution parses a "WxH" string (e.g. "1280x720") or a known alias.
//
// Arguments:
//   - s: The resolution string.
//
// Returns:
//   - Resolution: The parsed resolution.
//   - error: An error if the string is malformed or either dimension is not positive.
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	if res, ok := Resolutions[ResolutionAlias(strings.ToLower(s))]; ok {
		return res, nil
	}

	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 2 {
		return Resolution{}, errors.Errorf("invalid resolution %q: expected WxH", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Resolution{}, errors.Wrapf(err, "invalid resolution width in %q", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Resolution{}, errors.Wrapf(err, "invalid resolution height in %q", s)
	}
	if w <= 0 || h <= 0 {
		return Resolution{}, errors.Errorf("invalid resolution %q: dimensions must be positive", s)
	}

	return Resolution{Name: s, Pixels: Pixels{Width: w, Height: h}}, nil
}
