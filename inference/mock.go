package inference

import (
	"context"
)

// MockEngine is an Engine that returns canned outputs, for tests that run without a model.
type MockEngine struct {
	// Size is returned by InputSize.
	Size int
	// Outputs is returned by every Run. When nil, OutputsFn is used instead.
	Outputs []Tensor
	// OutputsFn builds the outputs for call n (0-based).
	OutputsFn func(n int) []Tensor
	// Err is returned by every Run when set.
	Err error

	// Calls counts Run invocations.
	Calls int
	// LastInputLen is the length of the most recent input.
	LastInputLen int
	// Closed counts Close invocations.
	Closed int
}

// InputSize returns m.Size.
func (m *MockEngine) InputSize() int {
	return m.Size
}

// Run records the call and returns the canned outputs.
func (m *MockEngine) Run(ctx context.Context, input []float32) ([]Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := m.Calls
	m.Calls++
	m.LastInputLen = len(input)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Outputs == nil && m.OutputsFn != nil {
		return m.OutputsFn(n), nil
	}
	return m.Outputs, nil
}

// Close records the call.
func (m *MockEngine) Close() error {
	m.Closed++
	return nil
}
