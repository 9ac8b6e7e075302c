// Package vad provides voice activity detection for the segmentation pipeline.
// It wraps a pluggable per-chunk inference function with threshold application
// and cumulative silence bookkeeping based on audio duration.
package vad
