package vad

import "fmt"

// MockDetector returns scripted probabilities in order. Used to drive the
// segmentation state machine deterministically in tests.
type MockDetector struct {
	Probabilities []float32
	Err           error

	calls int
}

// NewMockDetector creates a detector that replays the given probabilities
func NewMockDetector(probabilities ...float32) *MockDetector {
	return &MockDetector{Probabilities: probabilities}
}

// Infer returns the next scripted probability
func (m *MockDetector) Infer(_ []int16) (float32, error) {
	if m.Err != nil {
		return 0, m.Err
	}

	if m.calls >= len(m.Probabilities) {
		return 0, fmt.Errorf("mock detector exhausted after %d calls", m.calls)
	}

	p := m.Probabilities[m.calls]
	m.calls++
	return p, nil
}

// Calls returns how many times Infer has been invoked
func (m *MockDetector) Calls() int {
	return m.calls
}
