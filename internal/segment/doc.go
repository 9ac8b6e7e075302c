// Package segment implements the pause-based speech segmentation state machine.
// It consumes per-chunk voice activity verdicts and decides when accumulated
// audio forms a complete utterance and when a longer pause starts a new paragraph.
package segment
