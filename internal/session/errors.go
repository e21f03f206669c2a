package session

import "errors"

var (
	// ErrBusy means a press arrived while a cycle was already in flight.
	ErrBusy = errors.New("cycle already in progress")
	// ErrNotRecording means a release arrived with no capture open.
	ErrNotRecording = errors.New("not recording")
	// ErrBufferTooShort means the capture was below the minimum sample count.
	ErrBufferTooShort = errors.New("audio too short")
	// ErrTranscription wraps speech-to-text failures and empty transcripts.
	ErrTranscription = errors.New("transcription failed")
	// ErrResponseGeneration wraps reply-generation failures.
	ErrResponseGeneration = errors.New("response generation failed")
	// ErrPanicked means a cycle panicked and was recovered.
	ErrPanicked = errors.New("cycle panicked")
	// ErrClosed means the orchestrator has been shut down.
	ErrClosed = errors.New("orchestrator closed")
)
