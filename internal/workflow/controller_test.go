package workflow_test

import (
	"testing"
	"time"

	"github.com/sobandev/docflow/internal/docengine"
	"github.com/sobandev/docflow/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func audio() docengine.Upload {
	return docengine.Upload{Name: "note.mp3", Data: []byte("audio")}
}

func template() docengine.Upload {
	return docengine.Upload{Name: "contract.docx", Data: []byte("docx")}
}

// submit drives a controller from Idle into Reviewing with the given result.
func submit(t *testing.T, c *workflow.Controller, result *docengine.ProcessResult) {
	t.Helper()

	require.NoError(t, c.SelectAudio(audio()))
	token, err := c.BeginSubmission()
	require.NoError(t, err)
	require.NoError(t, c.ApplySubmission(token, result))
	require.Equal(t, workflow.PhaseReviewing, c.Phase())
}

func TestSubmissionGuards(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(c *workflow.Controller)
		canSubmit bool
	}{
		{
			name:      "no audio selected",
			setup:     func(*workflow.Controller) {},
			canSubmit: false,
		},
		{
			name: "audio selected, default template",
			setup: func(c *workflow.Controller) {
				require.NoError(t, c.SelectAudio(audio()))
			},
			canSubmit: true,
		},
		{
			name: "custom mode without template blocks submission",
			setup: func(c *workflow.Controller) {
				require.NoError(t, c.SelectAudio(audio()))
				require.NoError(t, c.SetTemplateMode(docengine.TemplateModeCustom))
			},
			canSubmit: false,
		},
		{
			name: "custom mode with template",
			setup: func(c *workflow.Controller) {
				require.NoError(t, c.SelectAudio(audio()))
				require.NoError(t, c.SelectTemplate(template()))
			},
			canSubmit: true,
		},
		{
			name: "template selected then switched back to default",
			setup: func(c *workflow.Controller) {
				require.NoError(t, c.SelectAudio(audio()))
				require.NoError(t, c.SelectTemplate(template()))
				require.NoError(t, c.SetTemplateMode(docengine.TemplateModeDefault))
			},
			canSubmit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := workflow.New(docengine.CategoryClinical)
			tt.setup(c)

			assert.Equal(t, tt.canSubmit, c.CanSubmit())

			_, err := c.BeginSubmission()
			if tt.canSubmit {
				assert.NoError(t, err)
				assert.Equal(t, workflow.PhaseSubmitting, c.Phase())
			} else {
				assert.Error(t, err)
				assert.Equal(t, workflow.PhaseIdle, c.Phase())
			}
		})
	}
}

func TestBeginSubmission(t *testing.T) {
	t.Run("disables a second submission until resolution", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		require.NoError(t, c.SelectAudio(audio()))

		_, err := c.BeginSubmission()
		require.NoError(t, err)

		_, err = c.BeginSubmission()
		assert.Error(t, err)
	})

	t.Run("clears a previous error", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		require.NoError(t, c.SelectAudio(audio()))

		token, err := c.BeginSubmission()
		require.NoError(t, err)
		require.NoError(t, c.FailSubmission(token, &docengine.RemoteError{Status: 500, Detail: "boom"}))
		require.NotEmpty(t, c.ErrorMessage())

		_, err = c.BeginSubmission()
		require.NoError(t, err)
		assert.Empty(t, c.ErrorMessage())
	})
}

func TestApplySubmission(t *testing.T) {
	t.Run("field order follows placeholders, not map order", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{
			Transcript:   "some dictation",
			Data:         map[string]string{"A": "1", "B": "2"},
			Placeholders: []string{"B", "A"},
		})

		assert.Equal(t, []string{"B", "A"}, c.FieldNames())
		assert.Equal(t, "some dictation", c.Transcript())
	})

	t.Run("placeholder without data binds an empty value", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{
			Data:         map[string]string{"A": "1"},
			Placeholders: []string{"A", "Missing"},
		})

		v, ok := c.FieldValue("Missing")
		require.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("data keys absent from placeholders are appended sorted", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{
			Data:         map[string]string{"Zeta": "z", "Alpha": "a", "Listed": "l"},
			Placeholders: []string{"Listed"},
		})

		assert.Equal(t, []string{"Listed", "Alpha", "Zeta"}, c.FieldNames())
	})

	t.Run("empty data and placeholders reach reviewing, not an error", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{Transcript: "just talk"})

		assert.Equal(t, workflow.PhaseReviewing, c.Phase())
		assert.Empty(t, c.FieldNames())
		assert.Empty(t, c.ErrorMessage())
	})

	t.Run("custom template handle is ingested", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{CustomTemplateID: "tpl-42"})

		assert.Equal(t, "tpl-42", c.CustomTemplateID())
	})
}

func TestFailSubmission(t *testing.T) {
	t.Run("returns to idle with message, selections preserved", func(t *testing.T) {
		c := workflow.New(docengine.CategoryCorporate)
		require.NoError(t, c.SelectAudio(audio()))
		require.NoError(t, c.SelectTemplate(template()))

		token, err := c.BeginSubmission()
		require.NoError(t, err)
		require.NoError(t, c.FailSubmission(token, &docengine.RemoteError{Status: 500, Detail: "Transcription failed"}))

		assert.Equal(t, workflow.PhaseIdle, c.Phase())
		assert.Equal(t, "Transcription failed", c.ErrorMessage())
		assert.Equal(t, "note.mp3", c.Audio().Name)
		assert.Equal(t, "contract.docx", c.Template().Name)
		assert.True(t, c.CanSubmit(), "user can retry without re-choosing files")
	})

	t.Run("new audio selection clears the error", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		require.NoError(t, c.SelectAudio(audio()))

		token, err := c.BeginSubmission()
		require.NoError(t, err)
		require.NoError(t, c.FailSubmission(token, docengine.ErrTransport))
		require.NotEmpty(t, c.ErrorMessage())

		require.NoError(t, c.SelectAudio(docengine.Upload{Name: "retake.mp3", Data: []byte("x")}))
		assert.Empty(t, c.ErrorMessage())
	})
}

func TestEditField(t *testing.T) {
	c := workflow.New(docengine.CategoryClinical)
	submit(t, c, &docengine.ProcessResult{
		Data:         map[string]string{"A": "1", "B": "2"},
		Placeholders: []string{"B", "A"},
	})

	t.Run("edits exactly one field, order untouched", func(t *testing.T) {
		require.NoError(t, c.EditField("A", "edited"))

		a, _ := c.FieldValue("A")
		b, _ := c.FieldValue("B")
		assert.Equal(t, "edited", a)
		assert.Equal(t, "2", b)
		assert.Equal(t, []string{"B", "A"}, c.FieldNames())
	})

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, c.EditField("A", "edited"))
		require.NoError(t, c.EditField("A", "edited"))

		a, _ := c.FieldValue("A")
		assert.Equal(t, "edited", a)
		assert.Equal(t, []string{"B", "A"}, c.FieldNames())
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		assert.Error(t, c.EditField("Nope", "x"))
	})

	t.Run("not editable outside reviewing", func(t *testing.T) {
		idle := workflow.New(docengine.CategoryClinical)
		assert.Error(t, idle.EditField("A", "x"))
	})
}

func TestGeneration(t *testing.T) {
	t.Run("success transitions to complete and exposes the document", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{
			Data:         map[string]string{"A": "1"},
			Placeholders: []string{"A"},
		})

		token, err := c.BeginGeneration()
		require.NoError(t, err)
		require.True(t, c.IsGenerating())

		require.NoError(t, c.ApplyGeneration(token, &docengine.GenerateResult{
			Document: []byte("PK docx"),
			Filename: "clinical_document.docx",
		}))

		assert.Equal(t, workflow.PhaseComplete, c.Phase())
		assert.False(t, c.IsGenerating())
		require.NotNil(t, c.Result())
		assert.Equal(t, []byte("PK docx"), c.Result().Document)
	})

	t.Run("empty field set is permitted", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{})

		_, err := c.BeginGeneration()
		assert.NoError(t, err)
		assert.Empty(t, c.GenerateRequest().Fields)
	})

	t.Run("duplicate generation is blocked while in flight", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{})

		_, err := c.BeginGeneration()
		require.NoError(t, err)

		_, err = c.BeginGeneration()
		assert.Error(t, err)
	})

	t.Run("failure stays in reviewing and keeps edits", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{
			Data:         map[string]string{"A": "1", "B": "2"},
			Placeholders: []string{"B", "A"},
		})
		require.NoError(t, c.EditField("A", "edited"))

		token, err := c.BeginGeneration()
		require.NoError(t, err)
		require.NoError(t, c.FailGeneration(token, &docengine.RemoteError{Status: 500, Detail: "Template missing"}))

		assert.Equal(t, workflow.PhaseReviewing, c.Phase())
		assert.Equal(t, "Template missing", c.ErrorMessage())
		assert.False(t, c.IsGenerating())

		a, _ := c.FieldValue("A")
		assert.Equal(t, "edited", a, "edited fields survive a failed generation")
		assert.Equal(t, []string{"B", "A"}, c.FieldNames())
	})

	t.Run("custom template handle is echoed verbatim", func(t *testing.T) {
		c := workflow.New(docengine.CategoryCorporate)
		submit(t, c, &docengine.ProcessResult{CustomTemplateID: "tpl-abc-123"})

		req := c.GenerateRequest()
		assert.Equal(t, "tpl-abc-123", req.CustomTemplateID)
		assert.Equal(t, docengine.CategoryCorporate, req.Category)
	})

	t.Run("not reachable outside reviewing", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		_, err := c.BeginGeneration()
		assert.Error(t, err)
	})
}

func TestStaleResults(t *testing.T) {
	t.Run("submission result after restart is discarded", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		require.NoError(t, c.SelectAudio(audio()))

		token, err := c.BeginSubmission()
		require.NoError(t, err)

		c.Restart()

		err = c.ApplySubmission(token, &docengine.ProcessResult{Transcript: "late"})
		assert.ErrorIs(t, err, workflow.ErrStaleToken)
		assert.Equal(t, workflow.PhaseIdle, c.Phase())
		assert.Empty(t, c.Transcript())
	})

	t.Run("generation result after restart is discarded", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{})

		token, err := c.BeginGeneration()
		require.NoError(t, err)

		c.Restart()

		err = c.ApplyGeneration(token, &docengine.GenerateResult{Document: []byte("late")})
		assert.ErrorIs(t, err, workflow.ErrStaleToken)
		assert.Nil(t, c.Result())
	})

	t.Run("stale failure does not overwrite state", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		require.NoError(t, c.SelectAudio(audio()))

		token, err := c.BeginSubmission()
		require.NoError(t, err)

		c.Restart()

		err = c.FailSubmission(token, docengine.ErrTransport)
		assert.ErrorIs(t, err, workflow.ErrStaleToken)
		assert.Empty(t, c.ErrorMessage())
	})
}

func TestRestart(t *testing.T) {
	c := workflow.New(docengine.CategoryCorporate)
	require.NoError(t, c.SelectAudio(audio()))
	require.NoError(t, c.SelectTemplate(template()))

	token, err := c.BeginSubmission()
	require.NoError(t, err)
	require.NoError(t, c.ApplySubmission(token, &docengine.ProcessResult{
		Transcript:       "text",
		Data:             map[string]string{"A": "1"},
		Placeholders:     []string{"A"},
		CustomTemplateID: "tpl-9",
	}))

	token, err = c.BeginGeneration()
	require.NoError(t, err)
	require.NoError(t, c.ApplyGeneration(token, &docengine.GenerateResult{Document: []byte("PK")}))
	require.Equal(t, workflow.PhaseComplete, c.Phase())

	c.Restart()

	assert.Equal(t, workflow.PhaseIdle, c.Phase())
	assert.True(t, c.Audio().Empty())
	assert.True(t, c.Template().Empty())
	assert.Equal(t, docengine.TemplateModeDefault, c.TemplateMode())
	assert.Empty(t, c.Transcript())
	assert.Empty(t, c.FieldNames())
	assert.Empty(t, c.CustomTemplateID())
	assert.Empty(t, c.ErrorMessage())
	assert.Nil(t, c.Result())

	// Category survives a restart.
	assert.Equal(t, docengine.CategoryCorporate, c.Category())
}

func TestCategory(t *testing.T) {
	t.Run("immutable once processing starts", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		require.NoError(t, c.SelectAudio(audio()))

		_, err := c.BeginSubmission()
		require.NoError(t, err)

		assert.Error(t, c.SetCategory(docengine.CategoryCorporate))
		assert.Equal(t, docengine.CategoryClinical, c.Category())
	})

	t.Run("changeable in idle", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		require.NoError(t, c.SetCategory(docengine.CategoryCorporate))
		assert.Equal(t, docengine.CategoryCorporate, c.Category())
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		assert.Error(t, c.SetCategory("legal"))
	})
}

func TestSuggestedFileName(t *testing.T) {
	date := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	t.Run("category naming without a custom handle", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		assert.Equal(t, "clinical_document_2024-03-05.docx", c.SuggestedFileName(date))
	})

	t.Run("corporate category", func(t *testing.T) {
		c := workflow.New(docengine.CategoryCorporate)
		assert.Equal(t, "corporate_document_2024-03-05.docx", c.SuggestedFileName(date))
	})

	t.Run("fixed generic name with a custom handle", func(t *testing.T) {
		c := workflow.New(docengine.CategoryClinical)
		submit(t, c, &docengine.ProcessResult{CustomTemplateID: "tpl-1"})

		assert.Equal(t, "custom_document.docx", c.SuggestedFileName(date))
	})
}
