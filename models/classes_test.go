package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    []string
		wantErr bool
	}{
		{
			name: "Sequence",
			yaml: "names:\n  - person\n  - bicycle\n  - car\n",
			want: []string{"person", "bicycle", "car"},
		},
		{
			name: "Mapping sorted by id",
			yaml: "names:\n  2: car\n  0: person\n  1: bicycle\n",
			want: []string{"person", "bicycle", "car"},
		},
		{
			name: "Mapping with gaps keeps id order",
			yaml: "names:\n  10: truck\n  3: dog\n",
			want: []string{"dog", "truck"},
		},
		{
			name: "Flow mapping with extra keys",
			yaml: "path: ../datasets\nnc: 2\nnames: {1: traffic light, 0: stop sign}\n",
			want: []string{"stop sign", "traffic light"},
		},
		{
			name: "Numeric names decode as strings",
			yaml: "names: [1, 2]\n",
			want: []string{"1", "2"},
		},
		{name: "Missing names", yaml: "nc: 3\n", wantErr: true},
		{name: "Scalar names", yaml: "names: person\n", wantErr: true},
		{name: "Non-integer key", yaml: "names:\n  a: person\n", wantErr: true},
		{name: "Invalid yaml", yaml: "names: [a, b\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, err := ParseLabels([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, labels.Names())
			assert.Equal(t, len(tt.want), labels.Len())
		})
	}
}

func TestLabelSet_Name(t *testing.T) {
	labels := NewLabelSet("person", "bicycle", "car")

	tests := []struct {
		id   int
		want string
	}{
		{0, "person"},
		{2, "car"},
		{3, "id3"},
		{80, "id80"},
		{-1, "id-1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, labels.Name(tt.id))
	}

	var empty *LabelSet
	assert.Equal(t, "id0", empty.Name(0))
}

func TestLabelSet_NamesIsCopy(t *testing.T) {
	labels := NewLabelSet("person")
	names := labels.Names()
	names[0] = "changed"
	assert.Equal(t, "person", labels.Name(0))
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names:\n  0: person\n  1: car\n"), 0o600))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "car"}, labels.Names())

	_, err = LoadLabels(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ErrLabelsNotFound, errors.Cause(err))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("names: 3\n"), 0o600))
	_, err = LoadLabels(bad)
	require.Error(t, err)
	assert.NotEqual(t, ErrLabelsNotFound, errors.Cause(err))
}
