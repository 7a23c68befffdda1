// Package transcription provides an HTTP client for a whisper.cpp inference
// server. It encodes PCM utterances as WAV, submits them for batch
// transcription with automatic language detection, and handles retries,
// concurrency limiting, and request statistics.
package transcription
