package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the loophole service
type Metrics struct {
	// Chunk accumulation metrics
	ChunksEmitted prometheus.Counter
	ChunkDuration prometheus.Histogram

	// VAD metrics
	VADChunksClassified prometheus.Counter
	VADSpeechDetected   prometheus.Counter

	// Segmentation metrics
	SegmentsFlushed *prometheus.CounterVec
	SegmentDuration prometheus.Histogram

	// Dispatch metrics
	DispatchQueueDepth    prometheus.Gauge
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionLatency  prometheus.Histogram

	// Result queue metrics
	ResultQueueSize prometheus.Gauge
	ResultsDrained  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ChunksEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loophole_chunks_emitted_total",
			Help: "Total number of audio chunks emitted by the accumulator",
		}),
		ChunkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loophole_chunk_duration_seconds",
			Help:    "Audio duration of emitted chunks",
			Buckets: prometheus.LinearBuckets(0.5, 0.5, 12), // 0.5s to 6s
		}),

		VADChunksClassified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loophole_vad_chunks_classified_total",
			Help: "Total number of chunks classified by the voice activity gate",
		}),
		VADSpeechDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loophole_vad_speech_detected_total",
			Help: "Total number of chunks classified as containing speech",
		}),

		SegmentsFlushed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loophole_segments_flushed_total",
			Help: "Total number of segments flushed for transcription",
		}, []string{"kind"}),
		SegmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loophole_segment_duration_seconds",
			Help:    "Audio duration of flushed segments",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),

		DispatchQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loophole_dispatch_queue_depth",
			Help: "Current number of transcription jobs waiting for dispatch",
		}),
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loophole_transcription_requests_total",
			Help: "Total number of transcription jobs submitted",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loophole_transcription_failures_total",
			Help: "Total number of transcription jobs that failed",
		}),
		TranscriptionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loophole_transcription_latency_seconds",
			Help:    "End-to-end latency from capture to completed transcription",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		ResultQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loophole_result_queue_size",
			Help: "Current number of completed results awaiting a poll",
		}),
		ResultsDrained: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loophole_results_drained_total",
			Help: "Total number of results delivered to the consumer",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loophole_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loophole_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loophole_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordChunkEmitted records an emitted audio chunk
func (m *Metrics) RecordChunkEmitted(durationSeconds float64) {
	m.ChunksEmitted.Inc()
	m.ChunkDuration.Observe(durationSeconds)
}

// RecordVADClassification records a gate classification
func (m *Metrics) RecordVADClassification(hasSpeech bool) {
	m.VADChunksClassified.Inc()
	if hasSpeech {
		m.VADSpeechDetected.Inc()
	}
}

// RecordSegmentFlushed records a flushed segment by kind
func (m *Metrics) RecordSegmentFlushed(kind string, durationSeconds float64) {
	m.SegmentsFlushed.WithLabelValues(kind).Inc()
	m.SegmentDuration.Observe(durationSeconds)
}

// RecordTranscriptionSubmitted increments the submitted job counter
func (m *Metrics) RecordTranscriptionSubmitted() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionFailure increments the failed job counter
func (m *Metrics) RecordTranscriptionFailure() {
	m.TranscriptionFailures.Inc()
}

// RecordTranscriptionLatency observes the capture-to-completion latency
func (m *Metrics) RecordTranscriptionLatency(latencySeconds float64) {
	m.TranscriptionLatency.Observe(latencySeconds)
}

// SetDispatchQueueDepth sets the current dispatch queue depth
func (m *Metrics) SetDispatchQueueDepth(depth int) {
	m.DispatchQueueDepth.Set(float64(depth))
}

// SetResultQueueSize sets the current result queue size
func (m *Metrics) SetResultQueueSize(size int) {
	m.ResultQueueSize.Set(float64(size))
}

// RecordResultsDrained records delivered results
func (m *Metrics) RecordResultsDrained(count int) {
	m.ResultsDrained.Add(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
