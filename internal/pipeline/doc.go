// Package pipeline wires chunk accumulation, voice activity gating,
// segmentation and transcription dispatch into the end-to-end streaming
// transcription flow, and exposes the submit/drain/reset contract consumed
// by the API layer.
package pipeline
