package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Event type discriminators carried in the outbound "type" field.
const (
	TypeReady   = "ready"
	TypeCaption = "caption"
	TypeError   = "error"
)

// Sentinel errors returned by message parsing. The session keeps the
// connection open for all of them.
var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrMissingAudio     = errors.New("missing audio field")
	ErrInvalidAudio     = errors.New("invalid audio encoding")
)

// ClientMessage is an inbound WebSocket message. Audio carries base64-encoded
// 16-bit signed little-endian mono PCM; TargetLang and SampleRate update the
// session defaults when present.
type ClientMessage struct {
	Audio      string `json:"audio"`
	TargetLang string `json:"target_lang,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// Event is an outbound WebSocket payload.
type Event interface {
	EventType() string
}

// ReadyConfig advertises the session audio configuration to the client.
type ReadyConfig struct {
	SampleRate  int `json:"sample_rate"`
	ChunkSizeMS int `json:"chunk_size_ms"`
}

// ReadyEvent is sent once after the connection is accepted.
type ReadyEvent struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Config  ReadyConfig `json:"config"`
}

// EventType implements Event.
func (e ReadyEvent) EventType() string { return TypeReady }

// NewReadyEvent builds the connection greeting.
func NewReadyEvent(sampleRate, chunkSizeMS int) ReadyEvent {
	return ReadyEvent{
		Type:    TypeReady,
		Message: "Connected. Send audio chunks.",
		Config: ReadyConfig{
			SampleRate:  sampleRate,
			ChunkSizeMS: chunkSizeMS,
		},
	}
}

// CaptionEvent carries the transcript and translation for one utterance.
// DetectedLang and Error marshal to null when absent.
type CaptionEvent struct {
	Type                string  `json:"type"`
	Original            string  `json:"original"`
	Translated          string  `json:"translated"`
	DetectedLang        *string `json:"detected_lang"`
	DetectedLangDisplay string  `json:"detected_lang_display"`
	Error               *string `json:"error"`
}

// EventType implements Event.
func (e CaptionEvent) EventType() string { return TypeCaption }

// NewCaptionEvent builds a caption event. Empty detectedLang and errMsg
// become JSON null.
func NewCaptionEvent(original, translated, detectedLang, display, errMsg string) CaptionEvent {
	ev := CaptionEvent{
		Type:                TypeCaption,
		Original:            original,
		Translated:          translated,
		DetectedLangDisplay: display,
	}
	if detectedLang != "" {
		ev.DetectedLang = &detectedLang
	}
	if errMsg != "" {
		ev.Error = &errMsg
	}
	return ev
}

// ErrorEvent reports a protocol-level problem without closing the connection.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// EventType implements Event.
func (e ErrorEvent) EventType() string { return TypeError }

// NewErrorEvent builds an error event.
func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Error: message}
}

// ParseClientMessage decodes an inbound JSON message.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// DecodeAudio decodes the base64 audio payload to raw PCM bytes.
func (m *ClientMessage) DecodeAudio() ([]byte, error) {
	if m.Audio == "" {
		return nil, ErrMissingAudio
	}

	pcm, err := base64.StdEncoding.DecodeString(m.Audio)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	return pcm, nil
}

// EncodeEvent marshals an outbound event to its JSON wire form.
func EncodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.EventType(), err)
	}
	return data, nil
}
