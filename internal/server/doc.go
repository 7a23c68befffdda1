// Package server provides the HTTP server hosting the WebSocket audio
// endpoint alongside the monitoring REST API and Prometheus metrics.
package server
