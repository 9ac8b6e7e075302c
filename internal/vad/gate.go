package vad

import (
	"fmt"
	"sync"

	"github.com/lirrensi/loophole/internal/audio"
)

// Verdict represents the per-chunk classification produced by the gate
type Verdict struct {
	HasSpeech      bool    `json:"has_speech"`
	Probability    float32 `json:"probability"`
	SilenceSeconds float64 `json:"silence_seconds"` // cumulative audio-duration of contiguous silence
}

// GateConfig contains gate configuration
type GateConfig struct {
	Threshold  float32
	MinSamples int // chunks shorter than this are classified as silence without inference
}

// Gate classifies chunks as speech or silence and tracks cumulative silence.
// The silence counter advances by the audio duration of each silent chunk and
// resets to zero on any speech-positive chunk; wall-clock time is never
// consulted, so processing delay cannot skew segmentation decisions.
type Gate struct {
	detector Detector
	config   GateConfig

	silenceSeconds float64

	// Statistics
	chunksClassified uint64
	speechChunks     uint64

	mu sync.RWMutex
}

// GateStats represents gate statistics
type GateStats struct {
	ChunksClassified uint64  `json:"chunks_classified"`
	SpeechChunks     uint64  `json:"speech_chunks"`
	SilenceSeconds   float64 `json:"silence_seconds"`
	Threshold        float32 `json:"threshold"`
}

// NewGate creates a new voice activity gate
func NewGate(detector Detector, config GateConfig) (*Gate, error) {
	if detector == nil {
		return nil, fmt.Errorf("detector cannot be nil")
	}

	if config.Threshold < 0 || config.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", config.Threshold)
	}

	return &Gate{
		detector: detector,
		config:   config,
	}, nil
}

// Classify runs the detector on a chunk and updates the silence counter
func (g *Gate) Classify(chunk *audio.Chunk) (*Verdict, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var probability float32
	if len(chunk.Samples) >= g.config.MinSamples {
		p, err := g.detector.Infer(chunk.Samples)
		if err != nil {
			return nil, fmt.Errorf("vad inference failed: %w", err)
		}
		probability = p
	}

	hasSpeech := probability >= g.config.Threshold && len(chunk.Samples) >= g.config.MinSamples

	if hasSpeech {
		g.silenceSeconds = 0
		g.speechChunks++
	} else {
		g.silenceSeconds += chunk.Duration()
	}
	g.chunksClassified++

	return &Verdict{
		HasSpeech:      hasSpeech,
		Probability:    probability,
		SilenceSeconds: g.silenceSeconds,
	}, nil
}

// Reset clears the silence counter, used at session start
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.silenceSeconds = 0
}

// SilenceSeconds returns the current cumulative silence duration
func (g *Gate) SilenceSeconds() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.silenceSeconds
}

// GetStats returns current gate statistics
func (g *Gate) GetStats() GateStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return GateStats{
		ChunksClassified: g.chunksClassified,
		SpeechChunks:     g.speechChunks,
		SilenceSeconds:   g.silenceSeconds,
		Threshold:        g.config.Threshold,
	}
}
