// Package session manages per-connection translation sessions. Each session
// owns an utterance segmenter, tracks the client's target language and sample
// rate, and feeds completed utterances through the dispatcher while keeping
// caption delivery in order.
package session
