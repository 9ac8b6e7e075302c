package transcription

import (
	"context"
	"sync"
	"time"
)

// Backend abstracts the external transcription model. Implementations take a
// finalized segment of mono PCM audio and return the transcribed text.
type Backend interface {
	Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error)
	Loaded() bool
}

// MockBackend is a deterministic backend for tests. Texts are returned in
// order; Err, when set, fails every call.
type MockBackend struct {
	Texts       []string
	Err         error
	Delay       time.Duration
	ModelLoaded bool

	calls int
	mu    sync.Mutex
}

// NewMockBackend creates a loaded mock backend replaying the given texts
func NewMockBackend(texts ...string) *MockBackend {
	return &MockBackend{
		Texts:       texts,
		ModelLoaded: true,
	}
}

// Transcribe returns the next scripted text
func (m *MockBackend) Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}

	var text string
	if m.calls < len(m.Texts) {
		text = m.Texts[m.calls]
	}
	m.calls++

	return text, nil
}

// Loaded reports whether the mock model is marked as loaded
func (m *MockBackend) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ModelLoaded
}

// Calls returns how many times Transcribe has been invoked
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}
