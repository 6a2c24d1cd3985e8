package docengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	processPath  = "/transcribe"
	generatePath = "/generate-docx"
)

// Client talks to one document engine instance. Each call is stateless: one
// outbound request, one normalized result or error. No retries, no timeout
// beyond the underlying transport's defaults.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (used by tests).
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// NewClient creates a gateway client for the engine at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// processResponse mirrors the engine's transcription response body.
type processResponse struct {
	Transcript       string            `json:"transcript"`
	Data             map[string]string `json:"data"`
	Placeholders     []string          `json:"placeholders"`
	CustomTemplateID string            `json:"custom_template_id"`
}

// generateRequestBody mirrors the engine's generation request body.
type generateRequestBody struct {
	Data             map[string]string `json:"data"`
	TemplateType     string            `json:"template_type"`
	CustomTemplateID string            `json:"custom_template_id,omitempty"`
}

// errorResponse mirrors the engine's error body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// ProcessSubmission uploads the audio note (and custom template, if any) and
// returns the transcript plus extracted fields. Exactly one multipart POST.
func (c *Client) ProcessSubmission(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	if req.Audio.Empty() {
		return nil, errors.New("audio payload is empty")
	}

	if req.Mode == TemplateModeCustom && req.Template.Empty() {
		return nil, errors.New("custom template mode requires a template file")
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	part, err := mw.CreateFormFile("file", req.Audio.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	if _, err := part.Write(req.Audio.Data); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	if err := mw.WriteField("template_type", string(req.Category)); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	if req.Mode == TemplateModeCustom {
		tpl, err := mw.CreateFormFile("template_file", req.Template.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}

		if _, err := tpl.Write(req.Template.Data); err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+processPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.remoteError(resp)
	}

	var decoded processResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	// Absent maps/lists are valid responses, not errors.
	if decoded.Data == nil {
		decoded.Data = map[string]string{}
	}

	if decoded.Placeholders == nil {
		decoded.Placeholders = []string{}
	}

	slog.Debug("Processing completed",
		"transcript_len", len(decoded.Transcript),
		"fields", len(decoded.Data),
		"custom_template", decoded.CustomTemplateID != "",
	)

	return &ProcessResult{
		Transcript:       decoded.Transcript,
		Data:             decoded.Data,
		Placeholders:     decoded.Placeholders,
		CustomTemplateID: decoded.CustomTemplateID,
	}, nil
}

// GenerateDocument submits the edited field values and returns the rendered
// document bytes. Exactly one JSON POST.
func (c *Client) GenerateDocument(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	fields := req.Fields
	if fields == nil {
		fields = map[string]string{}
	}

	payload, err := json.Marshal(generateRequestBody{
		Data:             fields,
		TemplateType:     string(req.Category),
		CustomTemplateID: req.CustomTemplateID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.remoteError(resp)
	}

	document, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if len(document) == 0 {
		return nil, fmt.Errorf("%w: empty document payload", ErrMalformedResponse)
	}

	return &GenerateResult{
		Document:    document,
		Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// remoteError turns a non-2xx response into a RemoteError, pulling the
// engine's {"detail": ...} body when present.
func (c *Client) remoteError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &RemoteError{Status: resp.StatusCode}
	}

	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Detail != "" {
		return &RemoteError{Status: resp.StatusCode, Detail: decoded.Detail}
	}

	return &RemoteError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
}

// filenameFromDisposition extracts the filename parameter from a
// Content-Disposition header, or "" when absent or unparsable.
func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}

	return params["filename"]
}
