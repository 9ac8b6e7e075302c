// Package server implements the HTTP API consumed by the capture frontend.
// It handles audio submission, result polling, buffer control and provides
// health/monitoring endpoints.
package server
