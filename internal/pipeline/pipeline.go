package pipeline

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lirrensi/loophole/internal/audio"
	"github.com/lirrensi/loophole/internal/metrics"
	"github.com/lirrensi/loophole/internal/segment"
	"github.com/lirrensi/loophole/internal/transcription"
	"github.com/lirrensi/loophole/internal/vad"
)

// Config contains pipeline configuration
type Config struct {
	SampleRate    int
	ChunkDuration time.Duration

	Gate       vad.GateConfig
	Segmenter  segment.Config
	Dispatcher transcription.DispatcherConfig
}

// Pipeline is the streaming transcription pipeline: accumulator -> gate ->
// segmenter -> dispatcher -> result queue. Submissions never block on
// transcription; the only blocking operation runs on the dispatcher worker.
type Pipeline struct {
	config Config

	accumulator *audio.Accumulator
	gate        *vad.Gate
	segmenter   *segment.Segmenter
	dispatcher  *transcription.Dispatcher
	results     *transcription.Queue
	backend     transcription.Backend

	logger  *slog.Logger
	metrics *metrics.Metrics // optional

	// Serializes submit/flush/reset so chunks flow through the gate and
	// segmenter in capture order.
	mu sync.Mutex
}

// Stats aggregates statistics from all pipeline stages
type Stats struct {
	Accumulator audio.AccumulatorStats        `json:"accumulator"`
	Gate        vad.GateStats                 `json:"gate"`
	Segmenter   segment.Stats                 `json:"segmenter"`
	Dispatcher  transcription.DispatcherStats `json:"dispatcher"`
	Results     transcription.QueueStats      `json:"results"`
}

// New creates a new pipeline around the given transcription backend and
// activity detector. The metrics argument may be nil.
func New(config Config, detector vad.Detector, backend transcription.Backend,
	logger *slog.Logger, m *metrics.Metrics) (*Pipeline, error) {

	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}

	if config.ChunkDuration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", config.ChunkDuration)
	}

	gate, err := vad.NewGate(detector, config.Gate)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice activity gate: %w", err)
	}

	segmenter, err := segment.NewSegmenter(config.Segmenter)
	if err != nil {
		return nil, fmt.Errorf("failed to create segmenter: %w", err)
	}

	results := transcription.NewQueue()

	dispatcher, err := transcription.NewDispatcher(backend, results, logger, config.Dispatcher, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	p := &Pipeline{
		config: config,
		accumulator: audio.NewAccumulator(audio.AccumulatorConfig{
			SampleRate:    config.SampleRate,
			ChunkDuration: config.ChunkDuration,
		}),
		gate:       gate,
		segmenter:  segmenter,
		dispatcher: dispatcher,
		results:    results,
		backend:    backend,
		logger:     logger,
		metrics:    m,
	}

	dispatcher.Start()

	return p, nil
}

// SubmitAudio decodes an encoded audio blob, validates and resamples it to
// the pipeline rate, and feeds the samples into the accumulator. A decode
// failure is returned synchronously and leaves pipeline state untouched.
func (p *Pipeline) SubmitAudio(blob []byte, capturedAt float64) error {
	samples, sampleRate, err := audio.DecodeWAV(blob)
	if err != nil {
		return fmt.Errorf("failed to decode audio blob: %w", err)
	}

	if sampleRate != p.config.SampleRate {
		samples, err = audio.Resample(samples, sampleRate, p.config.SampleRate)
		if err != nil {
			return fmt.Errorf("failed to resample audio from %d Hz: %w", sampleRate, err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.accumulator.Push(samples, capturedAt)

	if p.accumulator.ShouldEmit(time.Now()) {
		if chunk := p.accumulator.Emit(); chunk != nil {
			p.processChunk(chunk)
		}
	}

	return nil
}

// Flush force-emits any partially accumulated chunk through the normal
// path, then finalizes the pending segment regardless of silence state.
// Used at recording stop so no trailing speech is lost.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if chunk := p.accumulator.ForceFlush(); chunk != nil {
		p.processChunk(chunk)
	}

	if seg := p.segmenter.ForceFlush(); seg != nil {
		p.submitSegment(seg, false)
	}

	p.gate.Reset()
}

// Reset discards the partial chunk and any pending segment unconditionally.
// The next submitted audio starts a fresh Idle cycle with no residual data.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.accumulator.Reset()
	p.segmenter.Reset()
	p.gate.Reset()

	p.logger.Info("Pipeline buffers reset")
}

// Drain removes and returns all currently completed results in FIFO order
func (p *Pipeline) Drain() []transcription.Result {
	drained := p.results.Drain()

	if p.metrics != nil {
		p.metrics.RecordResultsDrained(len(drained))
		p.metrics.SetResultQueueSize(p.results.Len())
	}

	return drained
}

// ModelLoaded reports whether the transcription backend is ready
func (p *Pipeline) ModelLoaded() bool {
	return p.backend.Loaded()
}

// Stop shuts the pipeline down, letting in-flight jobs complete and deliver
func (p *Pipeline) Stop() {
	p.dispatcher.Stop()
}

// GetStats returns aggregated statistics from all stages
func (p *Pipeline) GetStats() Stats {
	return Stats{
		Accumulator: p.accumulator.GetStats(),
		Gate:        p.gate.GetStats(),
		Segmenter:   p.segmenter.GetStats(),
		Dispatcher:  p.dispatcher.GetStats(),
		Results:     p.results.GetStats(),
	}
}

// processChunk runs one emitted chunk through the gate and segmenter.
// Caller holds p.mu.
func (p *Pipeline) processChunk(chunk *audio.Chunk) {
	if p.metrics != nil {
		p.metrics.RecordChunkEmitted(chunk.Duration())
	}

	verdict, err := p.gate.Classify(chunk)
	if err != nil {
		// Inference fault: report it as an error result and drop the
		// pending segment, as if the flush had failed downstream.
		p.logger.Error("Voice activity classification failed",
			slog.String("error", err.Error()),
		)

		p.results.Push(transcription.Result{
			Error:         err.Error(),
			CapturedAt:    chunk.CapturedAt,
			TranscribedAt: transcription.NowSeconds(),
		})
		p.segmenter.Reset()
		return
	}

	if p.metrics != nil {
		p.metrics.RecordVADClassification(verdict.HasSpeech)
	}

	p.logger.Debug("Chunk classified",
		slog.Float64("duration", chunk.Duration()),
		slog.Bool("has_speech", verdict.HasSpeech),
		slog.Float64("silence_seconds", verdict.SilenceSeconds),
	)

	decision, seg := p.segmenter.Process(chunk, verdict)
	if seg == nil {
		return
	}

	p.logger.Info("Segment finalized",
		slog.String("decision", decision.String()),
		slog.Float64("duration", seg.Duration()),
		slog.Float64("captured_at", seg.CapturedAt),
	)

	if p.metrics != nil {
		p.metrics.RecordSegmentFlushed(decision.String(), seg.Duration())
	}

	p.submitSegment(seg, decision == segment.DecisionFlushParagraph)
}

// submitSegment hands a finalized segment to the dispatcher. Caller holds p.mu.
func (p *Pipeline) submitSegment(seg *segment.PendingSegment, newParagraph bool) {
	if p.metrics != nil {
		p.metrics.RecordTranscriptionSubmitted()
	}

	if err := p.dispatcher.Submit(seg.Samples, seg.SampleRate, seg.CapturedAt, newParagraph); err != nil {
		p.logger.Warn("Failed to submit segment for transcription",
			slog.String("error", err.Error()),
		)
		return
	}

	if p.metrics != nil {
		p.metrics.SetDispatchQueueDepth(p.dispatcher.QueueDepth())
	}
}
