// Package protocol defines the WebSocket message contract.
// It handles parsing of inbound audio messages (base64 PCM16LE plus optional
// session settings) and the outbound ready/caption/error event payloads.
package protocol
