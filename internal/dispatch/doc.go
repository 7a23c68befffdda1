// Package dispatch runs the transcribe-then-translate pipeline for completed
// utterances. Pipeline failures never escape as errors; they are folded into
// the caption event so the session can report them to the client.
package dispatch
