package models

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrLabelsNotFound is returned when the class-definition file does not exist.
var ErrLabelsNotFound = errors.New("data.yaml file not found")

// LabelSet is the ordered list of class names, indexed by class id.
//
// A LabelSet is built once at startup and is safe to share read-only.
type LabelSet struct {
	names []string
}

// NewLabelSet builds a LabelSet from names in class-id order.
func NewLabelSet(names ...string) *LabelSet {
	return &LabelSet{names: append([]string(nil), names...)}
}

// Len returns the number of known classes.
func (s *LabelSet) Len() int {
	return len(s.names)
}

// Names returns a copy of the class names in class-id order.
func (s *LabelSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Name returns the class name for id.
//
// Arguments:
//   - id: The class id produced by the model.
//
// Returns:
//   - string: The class name, or "id<N>" when id is outside the set.
func (s *LabelSet) Name(id int) string {
	if s == nil || id < 0 || id >= len(s.names) {
		return fmt.Sprintf("id%d", id)
	}
	return s.names[id]
}

// labelFile is the subset of a data.yaml file the detector reads.
type labelFile struct {
	Names yaml.Node `yaml:"names"`
}

// LoadLabels reads the `names` entry of a YAML class-definition file.
//
// Arguments:
//   - path: The path to the data.yaml file.
//
// Returns:
//   - *LabelSet: The loaded labels.
//   - error: ErrLabelsNotFound if the file is missing, otherwise a wrapped parse error.
func LoadLabels(path string) (*LabelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrLabelsNotFound, path)
		}
		return nil, errors.Wrapf(err, "failed to read labels from %s", path)
	}

	labels, err := ParseLabels(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse labels from %s", path)
	}
	return labels, nil
}

// ParseLabels decodes the `names` entry of a YAML document.
//
// A mapping of class id to name is ordered by ascending id. A sequence is used as-is.
//
// Arguments:
//   - data: The YAML document.
//
// Returns:
//   - *LabelSet: The decoded labels.
//   - error: An error if the document is malformed or has no usable `names` entry.
//
// Example Usage:
// ```go
//
//	labels, _ := ParseLabels([]byte("names: {1: car, 0: person}"))
//	labels.Name(0) // "person"
//	labels.Name(7) // "id7"
//
// ```
func ParseLabels(data []byte) (*LabelSet, error) {
	var f labelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "invalid yaml")
	}

	switch f.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := f.Names.Decode(&names); err != nil {
			return nil, errors.Wrap(err, "invalid names sequence")
		}
		return NewLabelSet(names...), nil

	case yaml.MappingNode:
		type entry struct {
			id   int
			name string
		}
		entries := make([]entry, 0, len(f.Names.Content)/2)
		for i := 0; i+1 < len(f.Names.Content); i += 2 {
			var e entry
			if err := f.Names.Content[i].Decode(&e.id); err != nil {
				return nil, errors.Wrapf(err, "invalid class id %q", f.Names.Content[i].Value)
			}
			if err := f.Names.Content[i+1].Decode(&e.name); err != nil {
				return nil, errors.Wrapf(err, "invalid class name for id %d", e.id)
			}
			entries = append(entries, e)
		}
		sort.SliceStable(entries, func(a, b int) bool { return entries[a].id < entries[b].id })

		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.name
		}
		return NewLabelSet(names...), nil

	case 0:
		return nil, errors.New("missing names entry")

	default:
		return nil, errors.Errorf("names must be a mapping or a sequence, got line %d", f.Names.Line)
	}
}
