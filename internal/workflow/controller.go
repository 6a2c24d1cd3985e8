// Package workflow owns every piece of client-visible state for one
// dictation-to-document session and enforces the valid phase transitions.
// Views hold a *Controller and mutate state only through the named
// transition methods; nothing here touches the network.
package workflow

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sobandev/docflow/internal/docengine"
	"github.com/sobandev/docflow/pkg/collections"
)

// Phase is the controller's current stage in the
// select -> process -> review -> generate -> complete sequence.
type Phase string

const (
	// PhaseIdle is the initial phase: audio and template selection.
	PhaseIdle Phase = "idle"
	// PhaseSubmitting means the transcription/extraction call is in flight.
	PhaseSubmitting Phase = "submitting"
	// PhaseReviewing means transcript and fields are available for edit.
	// Generation in flight is a sub-state of Reviewing, see IsGenerating.
	PhaseReviewing Phase = "reviewing"
	// PhaseComplete is terminal: the generated document is ready.
	PhaseComplete Phase = "complete"
)

// Token identifies one outbound request so that a response arriving after a
// restart (or for an otherwise superseded request) is discarded instead of
// applied.
type Token uint64

// ErrStaleToken is returned by Apply*/Fail* when the result belongs to a
// request that has since been superseded. Callers drop such results.
var ErrStaleToken = errors.New("result belongs to a superseded request")

// Result is the finished document exposed in PhaseComplete.
type Result struct {
	Document []byte
	// ServerFilename is the name suggested by the engine, informational
	// only: SuggestedFileName decides the actual download name.
	ServerFilename string
}

// Controller is the workflow state machine. It is not safe for concurrent
// use; the TUI drives it from a single event loop.
type Controller struct {
	phase    Phase
	category docengine.Category
	mode     docengine.TemplateMode

	audio    docengine.Upload
	template docengine.Upload

	transcript       string
	fields           *collections.OrderedMap[string]
	customTemplateID string

	errMsg string
	result *Result

	token      Token
	generating bool
}

// New creates a controller in PhaseIdle for the given category.
func New(category docengine.Category) *Controller {
	return &Controller{
		phase:    PhaseIdle,
		category: category,
		mode:     docengine.TemplateModeDefault,
		fields:   collections.NewOrderedMap[string](),
	}
}

// Phase returns the current workflow phase.
func (c *Controller) Phase() Phase { return c.phase }

// Category returns the selected category.
func (c *Controller) Category() docengine.Category { return c.category }

// TemplateMode returns the current template mode.
func (c *Controller) TemplateMode() docengine.TemplateMode { return c.mode }

// Audio returns the selected audio upload (zero value when none).
func (c *Controller) Audio() docengine.Upload { return c.audio }

// Template returns the selected custom template upload (zero value when none).
func (c *Controller) Template() docengine.Upload { return c.template }

// Transcript returns the transcript from the last successful submission.
func (c *Controller) Transcript() string { return c.transcript }

// CustomTemplateID returns the engine-assigned template handle, if any.
func (c *Controller) CustomTemplateID() string { return c.customTemplateID }

// ErrorMessage returns the most recent failure message, or "".
func (c *Controller) ErrorMessage() string { return c.errMsg }

// IsGenerating reports whether a generation call is in flight.
func (c *Controller) IsGenerating() bool { return c.generating }

// Result returns the generated document, or nil before PhaseComplete.
func (c *Controller) Result() *Result { return c.result }

// FieldNames returns the editable field names in service-defined order.
func (c *Controller) FieldNames() []string { return c.fields.Keys() }

// FieldValue returns the current value for a field name.
func (c *Controller) FieldValue(name string) (string, bool) { return c.fields.Get(name) }

// SetCategory changes the category. Only valid in PhaseIdle: the category is
// immutable once processing starts for a submission.
func (c *Controller) SetCategory(category docengine.Category) error {
	if c.phase != PhaseIdle {
		return fmt.Errorf("cannot change category in phase %q", c.phase)
	}

	if !category.Valid() {
		return fmt.Errorf("unknown category %q", category)
	}

	c.category = category

	return nil
}

// SelectAudio replaces the audio selection. Clears any prior error.
func (c *Controller) SelectAudio(audio docengine.Upload) error {
	if c.phase != PhaseIdle {
		return fmt.Errorf("cannot select audio in phase %q", c.phase)
	}

	c.audio = audio
	c.errMsg = ""

	return nil
}

// SetTemplateMode toggles between the built-in and custom template.
func (c *Controller) SetTemplateMode(mode docengine.TemplateMode) error {
	if c.phase != PhaseIdle {
		return fmt.Errorf("cannot change template mode in phase %q", c.phase)
	}

	c.mode = mode

	return nil
}

// SelectTemplate replaces the custom template selection and switches to
// custom mode. Clears any prior error.
func (c *Controller) SelectTemplate(template docengine.Upload) error {
	if c.phase != PhaseIdle {
		return fmt.Errorf("cannot select template in phase %q", c.phase)
	}

	c.template = template
	c.mode = docengine.TemplateModeCustom
	c.errMsg = ""

	return nil
}

// CanSubmit reports whether the submission guard is satisfied: audio present
// and, in custom mode, a template present.
func (c *Controller) CanSubmit() bool {
	if c.phase != PhaseIdle || c.audio.Empty() {
		return false
	}

	if c.mode == docengine.TemplateModeCustom && c.template.Empty() {
		return false
	}

	return true
}

// BeginSubmission fires Idle -> Submitting and returns the token the caller
// must hand back with the gateway's outcome.
func (c *Controller) BeginSubmission() (Token, error) {
	if !c.CanSubmit() {
		return 0, fmt.Errorf("submission guard not satisfied in phase %q", c.phase)
	}

	c.errMsg = ""
	c.phase = PhaseSubmitting
	c.token++

	return c.token, nil
}

// ProcessRequest builds the gateway request for the current selections.
func (c *Controller) ProcessRequest() docengine.ProcessRequest {
	return docengine.ProcessRequest{
		Audio:    c.audio,
		Category: c.category,
		Mode:     c.mode,
		Template: c.template,
	}
}

// ApplySubmission fires Submitting -> Reviewing, ingesting the processing
// result verbatim. A result for a superseded token is discarded.
func (c *Controller) ApplySubmission(token Token, result *docengine.ProcessResult) error {
	if token != c.token || c.phase != PhaseSubmitting {
		return ErrStaleToken
	}

	fields := collections.NewOrderedMap[string]()
	for _, name := range result.Placeholders {
		fields.Set(name, result.Data[name])
	}

	// Extracted values the service did not list keep their data, appended
	// after the listed order so they stay editable.
	extra := make([]string, 0, len(result.Data))
	for name := range result.Data {
		if !fields.Has(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	for _, name := range extra {
		fields.Set(name, result.Data[name])
	}

	c.transcript = result.Transcript
	c.fields = fields
	c.customTemplateID = result.CustomTemplateID
	c.phase = PhaseReviewing

	return nil
}

// FailSubmission fires Submitting -> Idle, keeping the user's selections so
// they can retry without re-choosing files.
func (c *Controller) FailSubmission(token Token, err error) error {
	if token != c.token || c.phase != PhaseSubmitting {
		return ErrStaleToken
	}

	c.errMsg = docengine.UserMessage(err)
	c.phase = PhaseIdle

	return nil
}

// EditField replaces the value for exactly one field. Field order and all
// other fields are unaffected.
func (c *Controller) EditField(name, value string) error {
	if c.phase != PhaseReviewing {
		return fmt.Errorf("cannot edit fields in phase %q", c.phase)
	}

	if !c.fields.Has(name) {
		return fmt.Errorf("unknown field %q", name)
	}

	c.fields.Set(name, value)

	return nil
}

// BeginGeneration marks a generation call in flight. An empty field set is
// permitted; the engine decides whether it suffices.
func (c *Controller) BeginGeneration() (Token, error) {
	if c.phase != PhaseReviewing {
		return 0, fmt.Errorf("cannot generate in phase %q", c.phase)
	}

	if c.generating {
		return 0, errors.New("generation already in flight")
	}

	c.errMsg = ""
	c.generating = true
	c.token++

	return c.token, nil
}

// GenerateRequest builds the gateway request from the edited fields. The
// custom template handle, when present, is always echoed.
func (c *Controller) GenerateRequest() docengine.GenerateRequest {
	return docengine.GenerateRequest{
		Fields:           c.fields.ToMap(),
		Category:         c.category,
		CustomTemplateID: c.customTemplateID,
	}
}

// ApplyGeneration fires Reviewing -> Complete, exposing the document.
func (c *Controller) ApplyGeneration(token Token, result *docengine.GenerateResult) error {
	if token != c.token || !c.generating {
		return ErrStaleToken
	}

	c.generating = false
	c.result = &Result{
		Document:       result.Document,
		ServerFilename: result.Filename,
	}
	c.phase = PhaseComplete

	return nil
}

// FailGeneration records the failure and stays in Reviewing: edited fields
// are never discarded by a failed generation.
func (c *Controller) FailGeneration(token Token, err error) error {
	if token != c.token || !c.generating {
		return ErrStaleToken
	}

	c.generating = false
	c.errMsg = docengine.UserMessage(err)

	return nil
}

// Restart returns to PhaseIdle, clearing everything except the category.
// Any in-flight request is superseded and its result will be discarded.
func (c *Controller) Restart() {
	c.phase = PhaseIdle
	c.mode = docengine.TemplateModeDefault
	c.audio = docengine.Upload{}
	c.template = docengine.Upload{}
	c.transcript = ""
	c.fields = collections.NewOrderedMap[string]()
	c.customTemplateID = ""
	c.errMsg = ""
	c.result = nil
	c.generating = false
	c.token++
}

// SuggestedFileName names the generated document. Without a custom template
// handle the name is {category}_document_{YYYY-MM-DD}.docx; with one, the
// engine's fixed generic name wins over category-derived naming.
func (c *Controller) SuggestedFileName(now time.Time) string {
	if c.customTemplateID != "" {
		return "custom_document.docx"
	}

	return fmt.Sprintf("%s_document_%s.docx", c.category, now.Format(time.DateOnly))
}
