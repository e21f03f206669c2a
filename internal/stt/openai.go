// Package stt turns finished captures into text through a remote recognizer.
package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/uplink/internal/audio"
	"github.com/sashabaranov/go-openai"
)

// DefaultWhisperModel is used when no transcription model is configured.
const DefaultWhisperModel = openai.Whisper1

// OpenAI sends captures to the audio transcription endpoint as WAV uploads.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAI builds a Whisper transcriber over an existing client.
func NewOpenAI(client *openai.Client, model string, language string) (*OpenAI, error) {
	if client == nil {
		return nil, errors.New("openai client is nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultWhisperModel
	}
	return &OpenAI{client: client, model: model, language: strings.TrimSpace(language)}, nil
}

// Transcribe uploads capture and returns the recognized text.
func (o *OpenAI) Transcribe(ctx context.Context, capture audio.Capture) (string, error) {
	var body bytes.Buffer
	if err := audio.EncodeWAV(&body, capture.Samples, capture.SampleRate, capture.Channels); err != nil {
		return "", fmt.Errorf("encode capture: %w", err)
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: "capture.wav",
		Reader:   &body,
		Language: o.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return cleanSegment(resp.Text), nil
}
