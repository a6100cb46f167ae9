package annotations

import (
	"fmt"
	"sort"
)

// Row is one (frame, label) comparison between two reports.
type Row struct {
	Frame int
	Label string
	// Conf1 and Conf2 are the highest confidences of Label in each report.
	Conf1, Conf2 float64
	// Has1 and Has2 report whether the label appears in each report's frame.
	Has1, Has2 bool
}

// Diff returns Conf2 - Conf1 when both reports have the label.
func (r Row) Diff() (float64, bool) {
	if !r.Has1 || !r.Has2 {
		return 0, false
	}
	return r.Conf2 - r.Conf1, true
}

// Confidence1 formats Conf1 with two decimals, or "-" when absent.
func (r Row) Confidence1() string { return formatConfidence(r.Conf1, r.Has1) }

// Confidence2 formats Conf2 with two decimals, or "-" when absent.
func (r Row) Confidence2() string { return formatConfidence(r.Conf2, r.Has2) }

// Change formats the signed diff, e.g. "+0.05" or "-0.10", or "-" when either side is absent.
func (r Row) Change() string {
	d, ok := r.Diff()
	if !ok {
		return "-"
	}
	if d >= 0 {
		return fmt.Sprintf("+%.2f", d)
	}
	return fmt.Sprintf("%.2f", d)
}

func formatConfidence(c float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", c)
}

// Compare lines two reports up frame by frame.
//
// Every frame present in either report is visited in ascending order, and for
// each selected label the highest confidence per report is taken. Rows where
// neither report has the label are skipped.
//
// Arguments:
//   - a: The first report.
//   - b: The second report.
//   - labels: The labels to compare. Empty selects every label in either report.
//
// Returns:
//   - []Row: Rows ordered by frame, then by label name.
func Compare(a, b *Annotations, labels []string) []Row {
	if len(labels) == 0 {
		labels = unionSorted(a.Labels(), b.Labels())
	} else {
		labels = unionSorted(labels, nil)
	}

	frames := unionFrames(a.Frames(), b.Frames())

	var rows []Row
	for _, n := range frames {
		fa, _ := a.Get(n)
		fb, _ := b.Get(n)
		for _, label := range labels {
			c1, ok1 := fa.MaxConfidence(label)
			c2, ok2 := fb.MaxConfidence(label)
			if !ok1 && !ok2 {
				continue
			}
			rows = append(rows, Row{Frame: n, Label: label, Conf1: c1, Conf2: c2, Has1: ok1, Has2: ok2})
		}
	}
	return rows
}

func unionSorted(x, y []string) []string {
	seen := make(map[string]struct{}, len(x)+len(y))
	var out []string
	for _, s := range append(append([]string(nil), x...), y...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func unionFrames(x, y []int) []int {
	seen := make(map[int]struct{}, len(x)+len(y))
	var out []int
	for _, n := range append(append([]int(nil), x...), y...) {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
