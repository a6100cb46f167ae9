package annotations

import (
	"bufio"
	"image"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	headerPattern = regexp.MustCompile(
		`^Frame count:\s*(\d+)\s+Width:\s*(\d+)\s+He(?:igth|ight):\s*(\d+)`)
	labelPattern = regexp.MustCompile(
		`^Label:\s*(.+?)\s+ID:\s*(-?\d+)\s+Confidence:\s*(-?[\d.]+)\s+Detection count:\s*(\d+)\s+` +
			`Position:\s*center=\((-?[\d.]+),\s*(-?[\d.]+)\)\s+` +
			`Bounds:\s*xmin=(-?[\d.]+),\s*ymin=(-?[\d.]+),\s*xmax=(-?[\d.]+),\s*ymax=(-?[\d.]+)`)
)

// Load parses a report file.
//
// Arguments:
//   - path: The report path.
//
// Returns:
//   - *Annotations: The parsed frames.
//   - error: An error if the file cannot be read.
func Load(path string) (*Annotations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open annotations %s", path)
	}
	defer f.Close()

	a, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read annotations %s", path)
	}
	return a, nil
}

// Parse reads a report.
//
// Lines matching neither a header nor a detection are ignored. A header closes
// the previous frame; detections before the first valid header are dropped. A
// repeated frame number replaces the earlier one.
//
// Arguments:
//   - r: The report text.
//
// Returns:
//   - *Annotations: The parsed frames, possibly empty.
//   - error: Only read errors. Malformed lines are not errors.
func Parse(r io.Reader) (*Annotations, error) {
	a := &Annotations{frames: make(map[int]FrameAnnotations)}

	var current *FrameAnnotations
	flush := func() {
		if current != nil {
			a.frames[current.Frame] = *current
		}
		current = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "Frame count:"):
			flush()
			if m := headerPattern.FindStringSubmatch(line); m != nil {
				current = &FrameAnnotations{
					Frame: atoi(m[1]),
					Size:  image.Pt(atoi(m[2]), atoi(m[3])),
				}
			}

		case strings.HasPrefix(line, "Label:"):
			if current == nil {
				continue
			}
			if m := labelPattern.FindStringSubmatch(line); m != nil {
				current.Labels = append(current.Labels, FrameLabel{
					Label:          m[1],
					ID:             atoi(m[2]),
					Confidence:     atof(m[3]),
					DetectionCount: atoi(m[4]),
					CenterX:        atof(m[5]),
					CenterY:        atof(m[6]),
					XMin:           atof(m[7]),
					YMin:           atof(m[8]),
					XMax:           atof(m[9]),
					YMax:           atof(m[10]),
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return a, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// SidecarPath returns the report path paired with a video: same directory and base name, .txt extension.
func SidecarPath(videoPath string) string {
	ext := ""
	if i := strings.LastIndexByte(videoPath, '.'); i > strings.LastIndexAny(videoPath, `/\`) {
		ext = videoPath[i:]
	}
	return strings.TrimSuffix(videoPath, ext) + ".txt"
}
