// Package config provides configuration loading and validation for the loophole service.
// It handles YAML-based configuration with struct validation covering the audio,
// segmentation, transcription and HTTP layers.
package config
