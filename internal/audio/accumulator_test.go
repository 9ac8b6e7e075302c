package audio

import (
	"testing"
	"time"
)

func testAccumulator() *Accumulator {
	return NewAccumulator(AccumulatorConfig{
		SampleRate:    16000,
		ChunkDuration: 3 * time.Second,
	})
}

func TestNewAccumulator(t *testing.T) {
	acc := testAccumulator()

	if acc.HasPendingData() {
		t.Error("New accumulator should not have pending data")
	}

	if chunk := acc.Emit(); chunk != nil {
		t.Error("Emit on empty accumulator should return nil")
	}
}

func TestAccumulatorPushAndEmit(t *testing.T) {
	acc := testAccumulator()

	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(i % 100)
	}

	acc.Push(samples, 100.5)

	if !acc.HasPendingData() {
		t.Error("Accumulator should have pending data after push")
	}

	chunk := acc.Emit()
	if chunk == nil {
		t.Fatal("Emit returned nil with buffered data")
	}

	if len(chunk.Samples) != 16000 {
		t.Errorf("Expected 16000 samples, got %d", len(chunk.Samples))
	}

	if chunk.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", chunk.SampleRate)
	}

	if chunk.CapturedAt != 100.5 {
		t.Errorf("Expected captured_at 100.5, got %f", chunk.CapturedAt)
	}

	if chunk.Duration() != 1.0 {
		t.Errorf("Expected 1.0s duration, got %f", chunk.Duration())
	}

	if acc.HasPendingData() {
		t.Error("Buffer should be empty after emit")
	}
}

func TestAccumulatorChunkStampedWithFirstBlock(t *testing.T) {
	acc := testAccumulator()

	// Three blocks pushed at different capture times; the chunk must carry
	// the capture time of the first block only.
	acc.Push(make([]int16, 4800), 10.0)
	acc.Push(make([]int16, 4800), 10.3)
	acc.Push(make([]int16, 4800), 10.6)

	chunk := acc.Emit()
	if chunk == nil {
		t.Fatal("Emit returned nil")
	}

	if chunk.CapturedAt != 10.0 {
		t.Errorf("Expected captured_at 10.0 (first block), got %f", chunk.CapturedAt)
	}

	if len(chunk.Samples) != 14400 {
		t.Errorf("Expected 14400 concatenated samples, got %d", len(chunk.Samples))
	}

	// After an emit the next block restarts the stamp
	acc.Push(make([]int16, 4800), 20.0)
	chunk = acc.ForceFlush()
	if chunk == nil {
		t.Fatal("ForceFlush returned nil")
	}
	if chunk.CapturedAt != 20.0 {
		t.Errorf("Expected captured_at 20.0 after restart, got %f", chunk.CapturedAt)
	}
}

func TestAccumulatorShouldEmit(t *testing.T) {
	acc := testAccumulator()
	now := time.Now()

	if acc.ShouldEmit(now.Add(10 * time.Second)) {
		t.Error("ShouldEmit must be false with an empty buffer regardless of elapsed time")
	}

	acc.Push(make([]int16, 100), 1.0)

	if acc.ShouldEmit(now) {
		t.Error("ShouldEmit should be false before the chunk duration elapses")
	}

	if !acc.ShouldEmit(now.Add(4 * time.Second)) {
		t.Error("ShouldEmit should be true after the chunk duration elapses")
	}
}

func TestAccumulatorEmitEmptyReturnsNil(t *testing.T) {
	acc := testAccumulator()

	if chunk := acc.Emit(); chunk != nil {
		t.Errorf("Expected nil chunk, got %d samples", len(chunk.Samples))
	}

	if chunk := acc.ForceFlush(); chunk != nil {
		t.Errorf("Expected nil chunk from ForceFlush, got %d samples", len(chunk.Samples))
	}
}

func TestAccumulatorReset(t *testing.T) {
	acc := testAccumulator()

	acc.Push(make([]int16, 8000), 5.0)
	acc.Reset()

	if acc.HasPendingData() {
		t.Error("Reset should discard buffered samples")
	}

	if chunk := acc.Emit(); chunk != nil {
		t.Error("Emit after reset should return nil")
	}
}

func TestAccumulatorEmitCopiesSamples(t *testing.T) {
	acc := testAccumulator()

	source := []int16{1, 2, 3, 4}
	acc.Push(source, 0)

	chunk := acc.Emit()
	if chunk == nil {
		t.Fatal("Emit returned nil")
	}

	source[0] = 99
	if chunk.Samples[0] != 1 {
		t.Error("Emitted chunk must not alias the pushed slice")
	}
}

func TestAccumulatorStats(t *testing.T) {
	acc := testAccumulator()

	acc.Push(make([]int16, 1000), 1.0)
	acc.Emit()
	acc.Push(make([]int16, 500), 2.0)

	stats := acc.GetStats()
	if stats.ChunksEmitted != 1 {
		t.Errorf("Expected 1 chunk emitted, got %d", stats.ChunksEmitted)
	}
	if stats.TotalSamples != 1500 {
		t.Errorf("Expected 1500 total samples, got %d", stats.TotalSamples)
	}
	if stats.BufferedCount != 500 {
		t.Errorf("Expected 500 buffered samples, got %d", stats.BufferedCount)
	}
	if !stats.HasPendingData {
		t.Error("Expected pending data in stats")
	}
}

func TestChunkDuration(t *testing.T) {
	chunk := &Chunk{Samples: make([]int16, 48000), SampleRate: 16000}
	if chunk.Duration() != 3.0 {
		t.Errorf("Expected 3.0s duration, got %f", chunk.Duration())
	}

	chunk = &Chunk{Samples: make([]int16, 100), SampleRate: 0}
	if chunk.Duration() != 0 {
		t.Errorf("Expected 0 duration for zero sample rate, got %f", chunk.Duration())
	}
}
