// Package config provides configuration loading and validation for the voice
// translation service. It handles YAML-based configuration with struct
// validation and environment variable overrides for the audio tuning knobs.
package config
