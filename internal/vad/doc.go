// Package vad provides energy-based voice activity detection.
// It classifies PCM16 audio chunks as silent or active by comparing their
// normalized RMS amplitude against a configurable threshold.
package vad
