package transcription

import (
	"sync"
	"time"
)

// Result represents a completed (or failed) transcription awaiting delivery.
// Error and non-empty Text are mutually exclusive.
type Result struct {
	Text          string  `json:"text,omitempty"`
	NewParagraph  bool    `json:"new_paragraph,omitempty"`
	HasSpeech     bool    `json:"has_speech,omitempty"`
	CapturedAt    float64 `json:"captured_at"`
	TranscribedAt float64 `json:"transcribed_at"`
	LatencyMS     float64 `json:"latency_ms"`
	Error         string  `json:"error,omitempty"`
}

// Queue is an ordered, thread-safe holding area for completed results.
// Results are appended by the dispatcher and removed only by Drain.
type Queue struct {
	results []Result

	// Statistics
	totalPushed  uint64
	totalDrained uint64

	mu sync.Mutex
}

// QueueStats represents result queue statistics
type QueueStats struct {
	Pending      int    `json:"pending"`
	TotalPushed  uint64 `json:"total_pushed"`
	TotalDrained uint64 `json:"total_drained"`
}

// NewQueue creates a new empty result queue
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a result to the tail of the queue
func (q *Queue) Push(result Result) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.results = append(q.results, result)
	q.totalPushed++
}

// Drain atomically removes and returns all queued results in FIFO order,
// leaving the queue empty. Returns an empty slice when nothing is queued.
func (q *Queue) Drain() []Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.results) == 0 {
		return []Result{}
	}

	drained := q.results
	q.results = nil
	q.totalDrained += uint64(len(drained))

	return drained
}

// Len returns the number of results currently queued
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.results)
}

// GetStats returns current queue statistics
func (q *Queue) GetStats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueStats{
		Pending:      len(q.results),
		TotalPushed:  q.totalPushed,
		TotalDrained: q.totalDrained,
	}
}

// NowSeconds returns the current wall-clock time as float seconds
func NowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
