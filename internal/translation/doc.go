// Package translation converts transcribed text between languages.
// It provides an NLLB-200 HTTP backend and an OpenAI chat-completion backend
// behind a common Translator interface. Translation failures degrade to
// returning the original text so captions are never lost.
package translation
