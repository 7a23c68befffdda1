// Package language maps ISO 639-1 language codes to display names and
// NLLB-200 Flores codes. Unsupported codes degrade to identity translation
// rather than failing.
package language
