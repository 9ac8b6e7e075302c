package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lirrensi/loophole/internal/config"
	"github.com/lirrensi/loophole/internal/metrics"
	"github.com/lirrensi/loophole/internal/pipeline"
)

// HTTPServer provides the HTTP API for audio submission and result polling
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics

	// Flush goroutines spawned by handleFlush. Stop waits for them so
	// shutdown never races the pipeline teardown.
	flushWG sync.WaitGroup

	startTime time.Time
}

// submitAudioRequest is the body of POST /v1/audio
type submitAudioRequest struct {
	AudioBase64 string  `json:"audio_base64"`
	CapturedAt  float64 `json:"captured_at"`
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, p *pipeline.Pipeline, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		pipeline:  p,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Pipeline endpoints
	mux.HandleFunc("/v1/audio", h.withMetrics("/v1/audio", h.handleSubmitAudio))
	mux.HandleFunc("/v1/results", h.withMetrics("/v1/results", h.handleDrainResults))
	mux.HandleFunc("/v1/status", h.withMetrics("/v1/status", h.handleStatus))
	mux.HandleFunc("/v1/reset", h.withMetrics("/v1/reset", h.handleReset))
	mux.HandleFunc("/v1/flush", h.withMetrics("/v1/flush", h.handleFlush))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		if h.metrics == nil {
			return
		}

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	err := h.server.Shutdown(ctx)
	h.flushWG.Wait()
	return err
}

// handleSubmitAudio implements POST /v1/audio
func (h *HTTPServer) handleSubmitAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.AudioBase64 == "" {
		h.writeError(w, http.StatusBadRequest, "audio_base64 cannot be empty")
		return
	}

	blob, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid base64 audio: %v", err))
		return
	}

	if err := h.pipeline.SubmitAudio(blob, req.CapturedAt); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, map[string]string{"status": "ok"})
}

// handleDrainResults implements GET /v1/results
func (h *HTTPServer) handleDrainResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	results := h.pipeline.Drain()

	h.logger.Debug("Drained results", slog.Int("count", len(results)))

	h.writeJSON(w, results)
}

// handleStatus implements GET /v1/status
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, map[string]bool{"model_loaded": h.pipeline.ModelLoaded()})
}

// handleReset implements POST /v1/reset
func (h *HTTPServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.pipeline.Reset()

	h.writeJSON(w, map[string]string{"status": "ok"})
}

// handleFlush implements POST /v1/flush
func (h *HTTPServer) handleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Flush can block behind the dispatch queue; run it off the request
	// path and let the consumer pick results up on the next poll.
	h.flushWG.Add(1)
	go func() {
		defer h.flushWG.Done()
		h.pipeline.Flush()
	}()

	h.writeJSON(w, map[string]string{"status": "flushing"})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	stats := h.pipeline.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "loophole",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"pipeline": map[string]interface{}{
				"status":         "running",
				"model_loaded":   h.pipeline.ModelLoaded(),
				"chunks_emitted": stats.Accumulator.ChunksEmitted,
				"segments":       stats.Segmenter.SegmentsFlushed,
			},
			"dispatcher": map[string]interface{}{
				"status":         "running",
				"jobs_submitted": stats.Dispatcher.JobsSubmitted,
				"jobs_failed":    stats.Dispatcher.JobsFailed,
				"queue_depth":    stats.Dispatcher.QueueDepth,
			},
			"results": map[string]interface{}{
				"pending": stats.Results.Pending,
			},
		},
	}

	h.writeJSON(w, health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"pipeline":  h.pipeline.GetStats(),
	}

	h.writeJSON(w, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "LoopHole Transcription Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /v1/audio":  "Submit a base64-encoded audio blob",
			"GET /v1/results": "Drain all completed transcription results",
			"GET /v1/status":  "Transcription model status",
			"POST /v1/reset":  "Discard buffered audio and reset segmentation",
			"POST /v1/flush":  "Force transcription of any pending audio",
			"GET /health":     "Service health check",
			"GET /stats":      "Pipeline statistics",
			"GET /metrics":    "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	h.writeJSON(w, apiDoc)
}

// writeJSON writes a JSON response with status 200
func (h *HTTPServer) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError writes a JSON error response
func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "error",
		"error":  message,
	})
}
