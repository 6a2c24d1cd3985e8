package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TemplateStore keeps default and uploaded templates on disk. Uploaded
// templates are keyed by a generated handle so a later generation request
// can find them again.
type TemplateStore struct {
	dir string
}

// NewTemplateStore creates the template directory if needed.
func NewTemplateStore(dir string) (*TemplateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create template directory: %w", err)
	}

	return &TemplateStore{dir: dir}, nil
}

// SaveCustom stores an uploaded template and returns its handle.
func (s *TemplateStore) SaveCustom(data []byte) (string, error) {
	id := uuid.NewString()

	path := filepath.Join(s.dir, "custom_"+id+".docx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store custom template: %w", err)
	}

	return id, nil
}

// LoadCustom retrieves a previously uploaded template by handle.
func (s *TemplateStore) LoadCustom(id string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "custom_"+id+".docx"))
	if err != nil {
		return nil, fmt.Errorf("custom template %s not found: %w", id, err)
	}

	return data, nil
}

// LoadDefault retrieves the built-in template for a category, stored as
// <category>_template.docx.
func (s *TemplateStore) LoadDefault(category string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, category+"_template.docx"))
	if err != nil {
		return nil, fmt.Errorf("default template for %s not found: %w", category, err)
	}

	return data, nil
}

// SaveMeta stores the inferred replacements for a custom template, so
// generation can apply them after the user edits the values.
func (s *TemplateStore) SaveMeta(id string, replacements map[string]Replacement) error {
	data, err := json.Marshal(replacements)
	if err != nil {
		return fmt.Errorf("failed to encode template metadata: %w", err)
	}

	path := filepath.Join(s.dir, "meta_"+id+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to store template metadata: %w", err)
	}

	return nil
}

// LoadMeta retrieves inferred replacements. A template without metadata
// yields a nil map, not an error.
func (s *TemplateStore) LoadMeta(id string) (map[string]Replacement, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "meta_"+id+".json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template metadata: %w", err)
	}

	var replacements map[string]Replacement
	if err := json.Unmarshal(data, &replacements); err != nil {
		return nil, fmt.Errorf("failed to decode template metadata: %w", err)
	}

	return replacements, nil
}
