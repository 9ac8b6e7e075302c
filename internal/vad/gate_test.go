package vad

import (
	"errors"
	"math"
	"testing"

	"github.com/lirrensi/loophole/internal/audio"
)

func chunkOf(samples int, rate int) *audio.Chunk {
	return &audio.Chunk{
		Samples:    make([]int16, samples),
		SampleRate: rate,
	}
}

func TestNewGate(t *testing.T) {
	if _, err := NewGate(nil, GateConfig{Threshold: 0.5}); err == nil {
		t.Error("Expected error for nil detector")
	}

	if _, err := NewGate(NewMockDetector(), GateConfig{Threshold: 1.5}); err == nil {
		t.Error("Expected error for threshold above 1")
	}

	gate, err := NewGate(NewMockDetector(), GateConfig{Threshold: 0.5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	if gate.SilenceSeconds() != 0 {
		t.Error("New gate should start with zero silence")
	}
}

func TestGateSilenceAccumulatesByAudioDuration(t *testing.T) {
	// Silence must advance by the audio duration of each chunk, not by
	// wall-clock time between calls.
	detector := NewMockDetector(0.1, 0.1, 0.1)
	gate, err := NewGate(detector, GateConfig{Threshold: 0.5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	chunk := chunkOf(48000, 16000) // 3.0 seconds

	for i, want := range []float64{3.0, 6.0, 9.0} {
		verdict, err := gate.Classify(chunk)
		if err != nil {
			t.Fatalf("Classify %d failed: %v", i, err)
		}
		if verdict.HasSpeech {
			t.Errorf("Chunk %d: expected silence verdict", i)
		}
		if math.Abs(verdict.SilenceSeconds-want) > 1e-9 {
			t.Errorf("Chunk %d: expected %.1fs silence, got %f", i, want, verdict.SilenceSeconds)
		}
	}
}

func TestGateSpeechResetsSilence(t *testing.T) {
	detector := NewMockDetector(0.1, 0.1, 0.9, 0.1)
	gate, err := NewGate(detector, GateConfig{Threshold: 0.5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	chunk := chunkOf(16000, 16000) // 1.0 second

	gate.Classify(chunk)
	gate.Classify(chunk)

	if gate.SilenceSeconds() != 2.0 {
		t.Errorf("Expected 2.0s silence, got %f", gate.SilenceSeconds())
	}

	verdict, err := gate.Classify(chunk)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !verdict.HasSpeech {
		t.Fatal("Expected speech verdict at probability 0.9")
	}
	if verdict.SilenceSeconds != 0 {
		t.Errorf("Speech must reset silence to zero, got %f", verdict.SilenceSeconds)
	}

	verdict, _ = gate.Classify(chunk)
	if verdict.SilenceSeconds != 1.0 {
		t.Errorf("Expected silence to restart at 1.0s, got %f", verdict.SilenceSeconds)
	}
}

func TestGateThresholdBoundary(t *testing.T) {
	// Probability exactly at the threshold counts as speech
	detector := NewMockDetector(0.5, 0.49999)
	gate, err := NewGate(detector, GateConfig{Threshold: 0.5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	chunk := chunkOf(16000, 16000)

	verdict, _ := gate.Classify(chunk)
	if !verdict.HasSpeech {
		t.Error("Probability equal to threshold should count as speech")
	}

	verdict, _ = gate.Classify(chunk)
	if verdict.HasSpeech {
		t.Error("Probability below threshold should count as silence")
	}
}

func TestGateShortChunkIsSilence(t *testing.T) {
	// Chunks below the minimum sample count bypass inference entirely
	detector := NewMockDetector() // exhausted detector errors if called
	gate, err := NewGate(detector, GateConfig{Threshold: 0.5, MinSamples: 512})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	verdict, err := gate.Classify(chunkOf(100, 16000))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if verdict.HasSpeech {
		t.Error("Short chunk should be classified as silence")
	}

	if detector.Calls() != 0 {
		t.Errorf("Detector should not be invoked for short chunks, got %d calls", detector.Calls())
	}
}

func TestGateDetectorError(t *testing.T) {
	detector := &MockDetector{Err: errors.New("model crashed")}
	gate, err := NewGate(detector, GateConfig{Threshold: 0.5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	if _, err := gate.Classify(chunkOf(16000, 16000)); err == nil {
		t.Error("Expected inference error to propagate")
	}
}

func TestGateReset(t *testing.T) {
	detector := NewMockDetector(0.1, 0.1)
	gate, err := NewGate(detector, GateConfig{Threshold: 0.5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	gate.Classify(chunkOf(32000, 16000))
	gate.Classify(chunkOf(32000, 16000))

	if gate.SilenceSeconds() == 0 {
		t.Fatal("Expected accumulated silence before reset")
	}

	gate.Reset()

	if gate.SilenceSeconds() != 0 {
		t.Errorf("Expected zero silence after reset, got %f", gate.SilenceSeconds())
	}
}

func TestGateStats(t *testing.T) {
	detector := NewMockDetector(0.9, 0.1, 0.9)
	gate, err := NewGate(detector, GateConfig{Threshold: 0.5})
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	chunk := chunkOf(16000, 16000)
	gate.Classify(chunk)
	gate.Classify(chunk)
	gate.Classify(chunk)

	stats := gate.GetStats()
	if stats.ChunksClassified != 3 {
		t.Errorf("Expected 3 chunks classified, got %d", stats.ChunksClassified)
	}
	if stats.SpeechChunks != 2 {
		t.Errorf("Expected 2 speech chunks, got %d", stats.SpeechChunks)
	}
}

func TestEnergyDetector(t *testing.T) {
	detector := NewEnergyDetector()

	// Silence has near-zero probability
	quiet := make([]int16, 16000)
	p, err := detector.Infer(quiet)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if p > 0.01 {
		t.Errorf("Expected near-zero probability for silence, got %f", p)
	}

	// Loud audio approaches full probability
	loud := make([]int16, 16000)
	for i := range loud {
		loud[i] = 20000
	}

	detector = NewEnergyDetector()
	p, err = detector.Infer(loud)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if p < 0.9 {
		t.Errorf("Expected high probability for loud audio, got %f", p)
	}

	if p > 1.0 {
		t.Errorf("Probability must be clamped to 1.0, got %f", p)
	}
}

func TestEnergyDetectorEmptyInput(t *testing.T) {
	detector := NewEnergyDetector()

	p, err := detector.Infer(nil)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if p != 0 {
		t.Errorf("Expected zero probability for empty input, got %f", p)
	}
}
