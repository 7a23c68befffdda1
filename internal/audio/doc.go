// Package audio provides PCM16 helpers for the voice translation pipeline.
// It implements energy (RMS) measurement, duration arithmetic for mono
// 16-bit audio, and WAV encoding for transcription uploads.
package audio
