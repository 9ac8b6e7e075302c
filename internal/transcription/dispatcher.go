package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lirrensi/loophole/internal/metrics"
)

// Job represents one finalized segment submitted for transcription.
// Exactly one Result is produced per job.
type Job struct {
	ID           string
	Samples      []int16
	SampleRate   int
	CapturedAt   float64
	NewParagraph bool
	SubmittedAt  float64
}

// DispatcherConfig contains dispatcher configuration
type DispatcherConfig struct {
	QueueDepth int
	JobTimeout time.Duration
}

// Dispatcher submits finalized segments to the transcription backend. A
// single worker drains a bounded FIFO job queue, so results are enqueued in
// exactly the order jobs were submitted regardless of backend latency.
type Dispatcher struct {
	backend Backend
	results *Queue
	logger  *slog.Logger
	config  DispatcherConfig
	metrics *metrics.Metrics // optional

	jobs chan *Job
	done chan struct{}
	wg   sync.WaitGroup

	// Submits in flight between the stopped check and the channel send.
	// Stop waits for these before closing the job channel.
	senders sync.WaitGroup
	stopped bool

	// Statistics
	jobsSubmitted uint64
	jobsCompleted uint64
	jobsFailed    uint64

	mu sync.RWMutex
}

// DispatcherStats represents dispatcher statistics
type DispatcherStats struct {
	JobsSubmitted uint64 `json:"jobs_submitted"`
	JobsCompleted uint64 `json:"jobs_completed"`
	JobsFailed    uint64 `json:"jobs_failed"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
}

// NewDispatcher creates a new dispatcher delivering results to the given
// queue. The metrics argument may be nil.
func NewDispatcher(backend Backend, results *Queue, logger *slog.Logger, config DispatcherConfig, m *metrics.Metrics) (*Dispatcher, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}

	if results == nil {
		return nil, fmt.Errorf("result queue cannot be nil")
	}

	if config.QueueDepth < 1 {
		config.QueueDepth = 1
	}

	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}

	return &Dispatcher{
		backend: backend,
		results: results,
		logger:  logger,
		config:  config,
		metrics: m,
		jobs:    make(chan *Job, config.QueueDepth),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the worker goroutine
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.worker()
}

// Submit creates a transcription job for a finalized segment and queues it.
// Blocks when the job queue is full; jobs are never reordered or dropped.
func (d *Dispatcher) Submit(samples []int16, sampleRate int, capturedAt float64, newParagraph bool) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot submit empty segment")
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is stopped")
	}
	d.senders.Add(1)
	d.mu.Unlock()
	defer d.senders.Done()

	job := &Job{
		ID:           uuid.NewString(),
		Samples:      samples,
		SampleRate:   sampleRate,
		CapturedAt:   capturedAt,
		NewParagraph: newParagraph,
		SubmittedAt:  NowSeconds(),
	}

	d.logger.Debug("Submitting transcription job",
		slog.String("job_id", job.ID),
		slog.Int("samples", len(job.Samples)),
		slog.Bool("new_paragraph", job.NewParagraph),
	)

	select {
	case d.jobs <- job:
		d.mu.Lock()
		d.jobsSubmitted++
		d.mu.Unlock()
		return nil
	case <-d.done:
		return fmt.Errorf("dispatcher is stopped")
	}
}

// Stop stops accepting new jobs, lets queued and in-flight jobs complete and
// deliver their results, then returns. A Submit blocked on a full queue is
// woken and returns an error instead of queueing.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.done)
	d.senders.Wait()
	close(d.jobs)
	d.wg.Wait()

	d.logger.Info("Dispatcher stopped",
		slog.Uint64("jobs_completed", d.jobsCompleted),
		slog.Uint64("jobs_failed", d.jobsFailed),
	)
}

// QueueDepth returns the number of jobs currently waiting in the queue
func (d *Dispatcher) QueueDepth() int {
	return len(d.jobs)
}

// GetStats returns current dispatcher statistics
func (d *Dispatcher) GetStats() DispatcherStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return DispatcherStats{
		JobsSubmitted: d.jobsSubmitted,
		JobsCompleted: d.jobsCompleted,
		JobsFailed:    d.jobsFailed,
		QueueDepth:    len(d.jobs),
		QueueCapacity: d.config.QueueDepth,
	}
}

// worker processes jobs one at a time in submission order
func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for job := range d.jobs {
		d.process(job)
	}
}

// process runs one job against the backend and always pushes exactly one
// result, so the consumer observes a completion for every submitted job.
func (d *Dispatcher) process(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.JobTimeout)
	defer cancel()

	startTime := time.Now()
	text, err := d.backend.Transcribe(ctx, job.Samples, job.SampleRate)
	transcribedAt := NowSeconds()

	if err != nil {
		d.mu.Lock()
		d.jobsFailed++
		d.mu.Unlock()

		if d.metrics != nil {
			d.metrics.RecordTranscriptionFailure()
		}

		d.logger.Error("Transcription failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
			slog.Float64("duration", time.Since(startTime).Seconds()),
		)

		d.results.Push(Result{
			Error:         err.Error(),
			CapturedAt:    job.CapturedAt,
			TranscribedAt: transcribedAt,
		})
		d.updateQueueMetrics()
		return
	}

	latencyMS := (transcribedAt - job.CapturedAt) * 1000
	if latencyMS < 0 {
		latencyMS = 0
	}

	d.mu.Lock()
	d.jobsCompleted++
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.RecordTranscriptionLatency(latencyMS / 1000)
	}

	d.logger.Info("Transcription completed",
		slog.String("job_id", job.ID),
		slog.String("text", truncateText(text, 50)),
		slog.Bool("new_paragraph", job.NewParagraph),
		slog.Float64("latency_ms", latencyMS),
	)

	d.results.Push(Result{
		Text:          strings.TrimSpace(text),
		NewParagraph:  job.NewParagraph,
		HasSpeech:     true,
		CapturedAt:    job.CapturedAt,
		TranscribedAt: transcribedAt,
		LatencyMS:     latencyMS,
	})
	d.updateQueueMetrics()
}

func (d *Dispatcher) updateQueueMetrics() {
	if d.metrics == nil {
		return
	}
	d.metrics.SetResultQueueSize(d.results.Len())
	d.metrics.SetDispatchQueueDepth(len(d.jobs))
}

// truncateText shortens text for log output
func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
