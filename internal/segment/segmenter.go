package segment

import (
	"fmt"
	"sync"

	"github.com/lirrensi/loophole/internal/audio"
	"github.com/lirrensi/loophole/internal/vad"
)

// State represents the current state of the segmentation process
type State int

const (
	StateIdle State = iota
	StateAccumulating
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Decision is produced once per processed chunk and drives dispatch
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionFlushSegment
	DecisionFlushParagraph
)

// String returns a human-readable decision name
func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionFlushSegment:
		return "flush_segment"
	case DecisionFlushParagraph:
		return "flush_paragraph"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// PendingSegment is the concatenation of all chunks accumulated since the
// last flush, stamped with the capture time of its first sample.
type PendingSegment struct {
	Samples    []int16
	SampleRate int
	CapturedAt float64
}

// Duration returns the audio duration of the segment in seconds
func (p *PendingSegment) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// Config contains segmentation thresholds, in seconds of audio
type Config struct {
	SegmentSilence     float64 // silence that completes a sentence
	ParagraphSilence   float64 // silence that also starts a new paragraph
	MaxSegmentDuration float64 // continuous speech cap before a forced flush, 0 disables
}

// Segmenter is the stateful component deciding when accumulated audio is
// flushed for transcription. Decisions depend only on the cumulative
// audio-duration of contiguous silence reported by the gate, never on
// wall-clock gaps between chunks.
type Segmenter struct {
	config Config

	state      State
	pending    []int16
	sampleRate int
	capturedAt float64

	// Statistics
	segmentsFlushed  uint64
	paragraphFlushes uint64
	forcedFlushes    uint64
	chunksDiscarded  uint64

	mu sync.RWMutex
}

// Stats represents segmenter statistics
type Stats struct {
	State            string `json:"state"`
	PendingSamples   int    `json:"pending_samples"`
	SegmentsFlushed  uint64 `json:"segments_flushed"`
	ParagraphFlushes uint64 `json:"paragraph_flushes"`
	ForcedFlushes    uint64 `json:"forced_flushes"`
	ChunksDiscarded  uint64 `json:"chunks_discarded"`
}

// NewSegmenter creates a new speech segmenter in the Idle state
func NewSegmenter(config Config) (*Segmenter, error) {
	if config.SegmentSilence <= 0 {
		return nil, fmt.Errorf("segment silence threshold must be positive, got %f", config.SegmentSilence)
	}

	if config.ParagraphSilence <= config.SegmentSilence {
		return nil, fmt.Errorf("paragraph silence threshold (%f) must be greater than segment threshold (%f)",
			config.ParagraphSilence, config.SegmentSilence)
	}

	if config.MaxSegmentDuration < 0 {
		return nil, fmt.Errorf("max segment duration cannot be negative, got %f", config.MaxSegmentDuration)
	}

	return &Segmenter{
		config: config,
		state:  StateIdle,
	}, nil
}

// Process consumes one chunk and its activity verdict and returns the
// segmentation decision. A non-nil segment is returned iff the decision is a
// flush; the pending segment is cleared on every flush.
func (s *Segmenter) Process(chunk *audio.Chunk, verdict *vad.Verdict) (Decision, *PendingSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		if !verdict.HasSpeech {
			s.chunksDiscarded++
			return DecisionContinue, nil
		}

		s.appendChunk(chunk)
		s.state = StateAccumulating
		return DecisionContinue, nil

	case StateAccumulating:
		if verdict.HasSpeech {
			s.appendChunk(chunk)

			// Cap on uninterrupted speech so the pending segment cannot
			// grow without bound.
			if s.config.MaxSegmentDuration > 0 && s.pendingDuration() >= s.config.MaxSegmentDuration {
				s.forcedFlushes++
				return DecisionFlushSegment, s.flushLocked()
			}

			return DecisionContinue, nil
		}

		if verdict.SilenceSeconds < s.config.SegmentSilence {
			// Short pause, keep buffering through it
			s.appendChunk(chunk)
			return DecisionContinue, nil
		}

		if verdict.SilenceSeconds >= s.config.ParagraphSilence {
			s.paragraphFlushes++
			return DecisionFlushParagraph, s.flushLocked()
		}

		return DecisionFlushSegment, s.flushLocked()
	}

	return DecisionContinue, nil
}

// ForceFlush finalizes the pending segment regardless of silence state.
// Returns nil if nothing is pending. State returns to Idle.
func (s *Segmenter) ForceFlush() *PendingSegment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle || len(s.pending) == 0 {
		s.state = StateIdle
		return nil
	}

	s.forcedFlushes++
	return s.flushLocked()
}

// Reset discards any pending segment unconditionally and returns to Idle.
// Used when recording stops so a truncated trailing fragment is not
// transcribed twice.
func (s *Segmenter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	s.capturedAt = 0
	s.state = StateIdle
}

// State returns the current state of the machine
func (s *Segmenter) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// HasPendingSegment reports whether speech is currently being accumulated
func (s *Segmenter) HasPendingSegment() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.pending) > 0
}

// GetStats returns current segmenter statistics
func (s *Segmenter) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		State:            s.state.String(),
		PendingSamples:   len(s.pending),
		SegmentsFlushed:  s.segmentsFlushed,
		ParagraphFlushes: s.paragraphFlushes,
		ForcedFlushes:    s.forcedFlushes,
		ChunksDiscarded:  s.chunksDiscarded,
	}
}

func (s *Segmenter) appendChunk(chunk *audio.Chunk) {
	if len(s.pending) == 0 {
		s.capturedAt = chunk.CapturedAt
		s.sampleRate = chunk.SampleRate
	}
	s.pending = append(s.pending, chunk.Samples...)
}

func (s *Segmenter) pendingDuration() float64 {
	if s.sampleRate <= 0 {
		return 0
	}
	return float64(len(s.pending)) / float64(s.sampleRate)
}

func (s *Segmenter) flushLocked() *PendingSegment {
	samples := make([]int16, len(s.pending))
	copy(samples, s.pending)

	seg := &PendingSegment{
		Samples:    samples,
		SampleRate: s.sampleRate,
		CapturedAt: s.capturedAt,
	}

	s.pending = nil
	s.capturedAt = 0
	s.state = StateIdle
	s.segmentsFlushed++

	return seg
}
