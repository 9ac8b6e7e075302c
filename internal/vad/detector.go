package vad

import (
	"math"
	"sync"
)

// Detector abstracts the voice activity inference function. Implementations
// return a speech probability in [0, 1] for a block of PCM samples.
type Detector interface {
	Infer(samples []int16) (float32, error)
}

// EnergyDetector is an RMS-energy based detector. It stands in for a real
// VAD model and is adequate for close-mic dictation audio.
type EnergyDetector struct {
	smoothing  float32
	lastResult float32
	hasHistory bool

	mu sync.Mutex
}

// NewEnergyDetector creates a new energy-based detector
func NewEnergyDetector() *EnergyDetector {
	return &EnergyDetector{
		smoothing: 0.3,
	}
}

// Infer returns a speech probability derived from normalized RMS energy
func (d *EnergyDetector) Infer(samples []int16) (float32, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	var energy float64
	for _, sample := range samples {
		energy += float64(sample) * float64(sample)
	}
	energy = math.Sqrt(energy / float64(len(samples)))

	// Normalize assuming speech energy peaks around 10000
	probability := float32(energy / 10000.0)
	if probability > 1.0 {
		probability = 1.0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasHistory {
		probability = d.smoothing*probability + (1-d.smoothing)*d.lastResult
	}
	d.lastResult = probability
	d.hasHistory = true

	return probability, nil
}
