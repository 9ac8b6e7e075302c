package audio

import (
	"sync"
	"time"
)

// Chunk represents a bounded-duration block of PCM audio handed from capture
// to the segmentation pipeline. Immutable once emitted.
type Chunk struct {
	Samples    []int16 `json:"-"`
	SampleRate int     `json:"sample_rate"`
	CapturedAt float64 `json:"captured_at"` // wall-clock seconds of the first sample
}

// Duration returns the audio duration of the chunk in seconds
func (c *Chunk) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// AccumulatorConfig contains configuration for chunk accumulation
type AccumulatorConfig struct {
	SampleRate    int
	ChunkDuration time.Duration
}

// Accumulator buffers incoming sample blocks and emits bounded-duration
// chunks stamped with the capture time of the first buffered sample.
type Accumulator struct {
	config AccumulatorConfig

	buffer   []int16
	firstAt  float64 // capture time of the first sample currently buffered
	lastEmit time.Time

	// Statistics
	chunksEmitted uint64
	totalSamples  uint64

	mu sync.RWMutex
}

// AccumulatorStats represents accumulator statistics
type AccumulatorStats struct {
	ChunksEmitted  uint64 `json:"chunks_emitted"`
	TotalSamples   uint64 `json:"total_samples"`
	BufferedCount  int    `json:"buffered_samples"`
	HasPendingData bool   `json:"has_pending_data"`
}

// NewAccumulator creates a new chunk accumulator
func NewAccumulator(config AccumulatorConfig) *Accumulator {
	return &Accumulator{
		config:   config,
		buffer:   make([]int16, 0, config.SampleRate*4),
		lastEmit: time.Now(),
	}
}

// Push appends a block of samples to the internal buffer. receivedAt is the
// wall-clock capture time of the block's first sample, in seconds.
func (a *Accumulator) Push(samples []int16, receivedAt float64) {
	if len(samples) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.buffer) == 0 {
		a.firstAt = receivedAt
	}

	a.buffer = append(a.buffer, samples...)
	a.totalSamples += uint64(len(samples))
}

// ShouldEmit reports whether enough time has elapsed since the last emission
// to cut the buffered audio into a chunk.
func (a *Accumulator) ShouldEmit(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.buffer) == 0 {
		return false
	}

	return now.Sub(a.lastEmit) >= a.config.ChunkDuration
}

// Emit returns the buffered samples as a chunk and clears the buffer.
// Returns nil if the buffer is empty; a zero-length chunk is never produced.
func (a *Accumulator) Emit() *Chunk {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.emitLocked()
}

// ForceFlush emits whatever is buffered regardless of elapsed time.
// Used when recording stops so no trailing audio is lost.
func (a *Accumulator) ForceFlush() *Chunk {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.emitLocked()
}

func (a *Accumulator) emitLocked() *Chunk {
	a.lastEmit = time.Now()

	if len(a.buffer) == 0 {
		return nil
	}

	samples := make([]int16, len(a.buffer))
	copy(samples, a.buffer)

	chunk := &Chunk{
		Samples:    samples,
		SampleRate: a.config.SampleRate,
		CapturedAt: a.firstAt,
	}

	a.buffer = a.buffer[:0]
	a.chunksEmitted++

	return chunk
}

// Reset discards any buffered samples without emitting
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buffer = a.buffer[:0]
	a.firstAt = 0
	a.lastEmit = time.Now()
}

// HasPendingData reports whether there are buffered samples awaiting emission
func (a *Accumulator) HasPendingData() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.buffer) > 0
}

// GetStats returns current accumulator statistics
func (a *Accumulator) GetStats() AccumulatorStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return AccumulatorStats{
		ChunksEmitted:  a.chunksEmitted,
		TotalSamples:   a.totalSamples,
		BufferedCount:  len(a.buffer),
		HasPendingData: len(a.buffer) > 0,
	}
}
