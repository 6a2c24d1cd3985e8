// Package docengine is the client for the remote document engine service:
// one call to transcribe an audio note and extract template fields, one call
// to generate the filled document.
package docengine

// Category selects the built-in template family used when no custom template
// is supplied. Its value is sent verbatim as the template_type form field.
type Category string

const (
	// CategoryClinical targets the clinical note template family.
	CategoryClinical Category = "clinical"
	// CategoryCorporate targets the corporate document template family.
	CategoryCorporate Category = "corporate"
)

// Categories returns all known categories.
func Categories() []Category {
	return []Category{CategoryClinical, CategoryCorporate}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryClinical || c == CategoryCorporate
}

// TemplateMode selects between the category's built-in template and a
// user-supplied one.
type TemplateMode string

const (
	// TemplateModeDefault uses the category's built-in template.
	TemplateModeDefault TemplateMode = "default"
	// TemplateModeCustom uses a user-supplied template file.
	TemplateModeCustom TemplateMode = "custom"
)

// Upload is a named binary payload picked by the user.
type Upload struct {
	Name string
	Data []byte
}

// Empty reports whether the upload carries no bytes.
func (u Upload) Empty() bool {
	return len(u.Data) == 0
}

// ProcessRequest carries one audio note (plus optional custom template) to
// the engine's transcribe-and-extract endpoint.
type ProcessRequest struct {
	Audio    Upload
	Category Category
	Mode     TemplateMode
	// Template is required when Mode is TemplateModeCustom.
	Template Upload
}

// ProcessResult is the engine's transcription and extraction outcome,
// wire-shaped: Data is unordered, Placeholders carries the display order.
type ProcessResult struct {
	Transcript   string
	Data         map[string]string
	Placeholders []string
	// CustomTemplateID identifies the parsed custom template on the server.
	// Empty unless a custom template was submitted.
	CustomTemplateID string
}

// GenerateRequest carries the edited field values to the engine's document
// generation endpoint.
type GenerateRequest struct {
	Fields   map[string]string
	Category Category
	// CustomTemplateID, when set, makes the engine reuse the previously
	// parsed custom template instead of the category default.
	CustomTemplateID string
}

// GenerateResult is the finished document.
type GenerateResult struct {
	Document []byte
	// Filename is the server-suggested download name, empty when the
	// response carried none.
	Filename    string
	ContentType string
}
