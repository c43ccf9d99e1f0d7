// Package stt defines the interface for speech-to-text transcription.
//
// A transcriber takes a waveform file on disk and produces plain text.
// lingopipe ships with one backend: a client for Whisper-compatible HTTP
// servers (whisper.cpp server, faster-whisper, whisper-asr-webservice).
package stt

import "context"

// TranscribeOpts controls transcription behavior.
type TranscribeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en") forcing the recognition
	// language. Empty means the backend default applies.
	Language string

	// Prompt provides context to improve recognition of domain-specific terms.
	Prompt string
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "whisper").
	Name() string

	// Transcribe reads the audio file at path and returns its best-effort
	// transcription. An empty string means no speech was detected.
	Transcribe(ctx context.Context, path string, opts TranscribeOpts) (string, error)

	// Close releases any resources held by the transcriber.
	Close() error
}
