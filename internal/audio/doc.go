// Package audio handles audio accumulation and format conversion.
// It implements PCM sample buffering into bounded-duration chunks, WAV
// encoding/decoding, stereo downmix and sample-rate conversion for the
// transcription pipeline.
package audio
