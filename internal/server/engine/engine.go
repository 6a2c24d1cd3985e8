// Package engine implements the document engine behind the HTTP API:
// transcription, field extraction, and docx template filling.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// TranscriberService turns an audio stream into text.
type TranscriberService interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Engine processes submissions and generates documents.
type Engine struct {
	transcriber TranscriberService
	extractor   Extractor
	store       *TemplateStore
	logger      *slog.Logger
	now         func() time.Time
}

// New creates an engine. A nil now falls back to time.Now.
func New(transcriber TranscriberService, extractor Extractor, store *TemplateStore, logger *slog.Logger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}

	return &Engine{
		transcriber: transcriber,
		extractor:   extractor,
		store:       store,
		logger:      logger,
		now:         now,
	}
}

// ProcessOutput is the result of one submission.
type ProcessOutput struct {
	Transcript       string
	Data             map[string]string
	Placeholders     []string
	CustomTemplateID string
}

// Process transcribes the audio, resolves the template, and extracts field
// values. A non-empty customTemplate is stored and processed instead of the
// category default.
func (e *Engine) Process(ctx context.Context, audio []byte, category string, customTemplate []byte) (*ProcessOutput, error) {
	var (
		template   []byte
		templateID string
		err        error
	)

	if len(customTemplate) > 0 {
		templateID, err = e.store.SaveCustom(customTemplate)
		if err != nil {
			return nil, err
		}
		template = customTemplate
	} else {
		template, err = e.store.LoadDefault(category)
		if err != nil {
			return nil, err
		}
	}

	transcript, err := e.transcriber.Transcribe(ctx, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	if transcript == "" {
		return nil, errors.New("transcription failed: empty transcript")
	}

	placeholders, err := ScanPlaceholders(template)
	if err != nil {
		return nil, err
	}

	templateText, err := DocumentText(template)
	if err != nil {
		return nil, err
	}

	var data map[string]string

	if len(placeholders) == 0 {
		// No placeholders: infer the variable fields from the filled
		// template instead.
		e.logger.Info("No placeholders found, inferring fields", "template_id", templateID)

		data, placeholders, err = e.inferFields(ctx, transcript, templateText, templateID)
		if err != nil {
			return nil, err
		}
	} else {
		data, err = e.extractor.ExtractFields(ctx, transcript, placeholders, templateText)
		if err != nil {
			return nil, fmt.Errorf("field extraction failed: %w", err)
		}
	}

	return &ProcessOutput{
		Transcript:       transcript,
		Data:             data,
		Placeholders:     placeholders,
		CustomTemplateID: templateID,
	}, nil
}

func (e *Engine) inferFields(ctx context.Context, transcript, templateText, templateID string) (map[string]string, []string, error) {
	replacements, err := e.extractor.InferReplacements(ctx, transcript, templateText)
	if err != nil {
		return nil, nil, fmt.Errorf("field inference failed: %w", err)
	}

	// Date fields the model left empty default to today.
	today := e.now().Format(time.DateOnly)
	for field, rep := range replacements {
		missing := rep.New == "" || strings.EqualFold(rep.New, "not mentioned")
		if missing && strings.Contains(strings.ToLower(field), "date") {
			rep.New = today
			replacements[field] = rep
		}
	}

	if templateID != "" && len(replacements) > 0 {
		if err := e.store.SaveMeta(templateID, replacements); err != nil {
			return nil, nil, err
		}
	}

	data := make(map[string]string, len(replacements))
	placeholders := make([]string, 0, len(replacements))
	for field, rep := range replacements {
		data[field] = rep.New
		placeholders = append(placeholders, field)
	}
	sort.Strings(placeholders)

	return data, placeholders, nil
}

// GenerateOutput is one generated document.
type GenerateOutput struct {
	Document []byte
	Filename string
}

// Generate fills the template with the submitted field values. A non-empty
// customTemplateID selects a stored uploaded template, otherwise the category
// default is used.
func (e *Engine) Generate(category, customTemplateID string, data map[string]string) (*GenerateOutput, error) {
	var (
		template     []byte
		replacements map[string]Replacement
		filename     string
		err          error
	)

	if customTemplateID != "" {
		template, err = e.store.LoadCustom(customTemplateID)
		if err != nil {
			return nil, err
		}

		replacements, err = e.store.LoadMeta(customTemplateID)
		if err != nil {
			return nil, err
		}

		filename = "custom_document.docx"
	} else {
		template, err = e.store.LoadDefault(category)
		if err != nil {
			return nil, err
		}

		filename = category + "_document.docx"
	}

	document, err := FillTemplate(template, data, replacements)
	if err != nil {
		return nil, err
	}

	return &GenerateOutput{
		Document: document,
		Filename: filename,
	}, nil
}
