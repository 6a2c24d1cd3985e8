package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const extractToolName = "save_extracted_fields"

// AnthropicExtractor extracts fields through the Anthropic Messages API,
// using forced tool-use for structured output.
type AnthropicExtractor struct {
	apiKey string
	model  anthropic.Model
}

// NewAnthropicExtractor creates an Anthropic-backed extractor.
func NewAnthropicExtractor(apiKey string) *AnthropicExtractor {
	return &AnthropicExtractor{
		apiKey: apiKey,
		model:  anthropic.ModelClaudeSonnet4_5_20250929,
	}
}

// extractFieldsTool builds the tool schema from the template's placeholders,
// one string property per field.
func extractFieldsTool(placeholders []string) anthropic.ToolParam {
	properties := make(map[string]interface{}, len(placeholders))
	for _, p := range placeholders {
		properties[p] = map[string]interface{}{
			"type":        "string",
			"description": "Value extracted from the transcription for " + p,
		}
	}

	return anthropic.ToolParam{
		Name: extractToolName,
		Description: anthropic.String(
			"Save the field values extracted from the transcription",
		),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type:       "object",
			Properties: properties,
			Required:   placeholders,
		},
	}
}

// ExtractFields maps the transcript onto the template's placeholder fields.
func (e *AnthropicExtractor) ExtractFields(ctx context.Context, transcript string, placeholders []string, templateText string) (map[string]string, error) {
	if len(placeholders) == 0 {
		return map[string]string{}, nil
	}

	if e.apiKey == "" {
		return nil, errors.New("API key required: set ANTHROPIC_API_KEY")
	}

	client := anthropic.NewClient(option.WithAPIKey(e.apiKey))
	toolDef := extractFieldsTool(placeholders)

	tool := anthropic.ToolUnionParamOfTool(toolDef.InputSchema, toolDef.Name)
	tool.OfTool.Description = toolDef.Description

	params := anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: extractSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				extractUserPrompt(transcript, placeholders, templateText),
			)),
		},
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: anthropic.ToolChoiceParamOfTool(extractToolName),
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to extract fields via Anthropic API: %w", err)
	}

	input, err := parseToolUse(resp.Content)
	if err != nil {
		return nil, err
	}

	return flattenFieldMap(input), nil
}

// InferReplacements discovers the variable fields of a placeholder-free
// template. The field set is unknown up front, so this asks for plain JSON
// instead of tool-use.
func (e *AnthropicExtractor) InferReplacements(ctx context.Context, transcript, templateText string) (map[string]Replacement, error) {
	if e.apiKey == "" {
		return nil, errors.New("API key required: set ANTHROPIC_API_KEY")
	}

	client := anthropic.NewClient(option.WithAPIKey(e.apiKey))

	params := anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: inferSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				inferUserPrompt(transcript, templateText),
			)),
		},
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to infer fields via Anthropic API: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, errors.New("empty response from Anthropic API")
	}

	textBlock, ok := resp.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return nil, errors.New("unexpected response type from Anthropic API")
	}

	return decodeReplacements(stripCodeFence(textBlock.Text))
}

// parseToolUse extracts the tool input object from response content blocks.
func parseToolUse(content []anthropic.ContentBlockUnion) (map[string]any, error) {
	for _, block := range content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			inputBytes, err := json.Marshal(toolUse.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool input: %w", err)
			}

			var input map[string]any
			if err := json.Unmarshal(inputBytes, &input); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}

			return input, nil
		}
	}

	return nil, errors.New("no tool use found in Anthropic API response")
}

// stripCodeFence removes a surrounding ```json fence when the model adds one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
