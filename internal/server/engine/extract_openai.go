package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatExtractor extracts fields through an OpenAI-compatible chat completion
// endpoint with JSON output mode.
type ChatExtractor struct {
	apiKey  string
	baseURL string
	model   string
}

// NewChatExtractor creates a chat-based extractor. A non-empty baseURL points
// the client at a compatible provider such as Groq.
func NewChatExtractor(apiKey, baseURL, model string) *ChatExtractor {
	return &ChatExtractor{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

func (e *ChatExtractor) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if e.apiKey == "" {
		return "", errors.New("API key required: set GROQ_API_KEY")
	}

	opts := []option.RequestOption{option.WithAPIKey(e.apiKey)}
	if e.baseURL != "" {
		opts = append(opts, option.WithBaseURL(e.baseURL))
	}
	client := openai.NewClient(opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from chat completion API")
	}

	return resp.Choices[0].Message.Content, nil
}

// ExtractFields maps the transcript onto the template's placeholder fields.
func (e *ChatExtractor) ExtractFields(ctx context.Context, transcript string, placeholders []string, templateText string) (map[string]string, error) {
	if len(placeholders) == 0 {
		return map[string]string{}, nil
	}

	raw, err := e.complete(ctx, extractSystemPrompt, extractUserPrompt(transcript, placeholders, templateText))
	if err != nil {
		return nil, err
	}

	return decodeFieldMap(raw)
}

// InferReplacements discovers the variable fields of a placeholder-free
// template.
func (e *ChatExtractor) InferReplacements(ctx context.Context, transcript, templateText string) (map[string]Replacement, error) {
	raw, err := e.complete(ctx, inferSystemPrompt, inferUserPrompt(transcript, templateText))
	if err != nil {
		return nil, err
	}

	return decodeReplacements(raw)
}
