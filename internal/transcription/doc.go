// Package transcription handles dispatch of finalized speech segments to a
// transcription backend and delivery of completed results. It provides the
// backend abstraction, an HTTP client implementation with retry logic, a
// single-flight FIFO dispatcher and the thread-safe result queue drained by
// the consumer.
package transcription
