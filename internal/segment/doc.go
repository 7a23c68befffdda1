// Package segment accumulates PCM audio into complete utterances.
// A state machine tracks speech and silence runs from the energy detector and
// emits an utterance once silence has lasted long enough or the buffer hits
// its maximum duration.
package segment
