package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Transcriber handles Whisper-style transcription requests against any
// endpoint speaking the OpenAI audio API, such as Groq.
type Transcriber struct {
	apiKey  string
	baseURL string
	model   string
}

// NewTranscriber creates a new transcription client.
func NewTranscriber(apiKey, baseURL, model string) *Transcriber {
	return &Transcriber{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

// Transcribe transcribes an audio stream to text.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	// Validate API key
	if t.apiKey == "" {
		return "", errors.New("API key required: set GROQ_API_KEY")
	}

	opts := []option.RequestOption{option.WithAPIKey(t.apiKey)}
	if t.baseURL != "" {
		opts = append(opts, option.WithBaseURL(t.baseURL))
	}
	client := openai.NewClient(opts...)

	// Create transcription request
	params := openai.AudioTranscriptionNewParams{
		File:  audio,
		Model: openai.AudioModel(t.model),
	}

	// Call Whisper API
	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
