package annotations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	reportA = `Frame count: 1 Width: 100 Heigth: 100

Label: person ID: 0 Confidence: 0.80 Detection count: 1 Position: center=(0.5, 0.5) Bounds: xmin=0.1, ymin=0.1, xmax=0.2, ymax=0.2
Label: person ID: 0 Confidence: 0.60 Detection count: 2 Position: center=(0.5, 0.5) Bounds: xmin=0.1, ymin=0.1, xmax=0.2, ymax=0.2
Frame count: 2 Width: 100 Heigth: 100

Label: car ID: 2 Confidence: 0.70 Detection count: 1 Position: center=(0.5, 0.5) Bounds: xmin=0.1, ymin=0.1, xmax=0.2, ymax=0.2
`
	reportB = `Frame count: 1 Width: 100 Heigth: 100

Label: person ID: 0 Confidence: 0.90 Detection count: 1 Position: center=(0.5, 0.5) Bounds: xmin=0.1, ymin=0.1, xmax=0.2, ymax=0.2
Label: car ID: 2 Confidence: 0.40 Detection count: 2 Position: center=(0.5, 0.5) Bounds: xmin=0.1, ymin=0.1, xmax=0.2, ymax=0.2
Frame count: 3 Width: 100 Heigth: 100

Label: person ID: 0 Confidence: 0.50 Detection count: 1 Position: center=(0.5, 0.5) Bounds: xmin=0.1, ymin=0.1, xmax=0.2, ymax=0.2
`
)

func parse(t *testing.T, s string) *Annotations {
	t.Helper()
	a, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return a
}

func TestCompare_AllLabels(t *testing.T) {
	rows := Compare(parse(t, reportA), parse(t, reportB), nil)

	type row struct {
		frame              int
		label, c1, c2, chg string
	}
	got := make([]row, 0, len(rows))
	for _, r := range rows {
		got = append(got, row{r.Frame, r.Label, r.Confidence1(), r.Confidence2(), r.Change()})
	}

	assert.Equal(t, []row{
		{1, "car", "-", "0.40", "-"},
		{1, "person", "0.80", "0.90", "+0.10"},
		{2, "car", "0.70", "-", "-"},
		{3, "person", "-", "0.50", "-"},
	}, got)
}

func TestCompare_SelectedLabels(t *testing.T) {
	rows := Compare(parse(t, reportA), parse(t, reportB), []string{"person", "person"})
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Frame)
	assert.Equal(t, 3, rows[1].Frame)

	d, ok := rows[0].Diff()
	require.True(t, ok)
	assert.InDelta(t, 0.1, d, 1e-9)

	_, ok = rows[1].Diff()
	assert.False(t, ok)
}

func TestCompare_UnknownLabel(t *testing.T) {
	assert.Empty(t, Compare(parse(t, reportA), parse(t, reportB), []string{"bicycle"}))
}

func TestRow_Change(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want string
	}{
		{"increase", Row{Conf1: 0.5, Conf2: 0.75, Has1: true, Has2: true}, "+0.25"},
		{"decrease", Row{Conf1: 0.9, Conf2: 0.5, Has1: true, Has2: true}, "-0.40"},
		{"equal", Row{Conf1: 0.5, Conf2: 0.5, Has1: true, Has2: true}, "+0.00"},
		{"missing first", Row{Conf2: 0.5, Has2: true}, "-"},
		{"missing second", Row{Conf1: 0.5, Has1: true}, "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.Change())
		})
	}
}

func TestCompare_Empty(t *testing.T) {
	assert.Empty(t, Compare(parse(t, ""), parse(t, ""), nil))
	assert.Empty(t, Compare(nil, nil, nil))
}
