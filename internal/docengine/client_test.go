package docengine_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sobandev/docflow/internal/docengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func audioUpload() docengine.Upload {
	return docengine.Upload{Name: "note.mp3", Data: []byte("fake audio bytes")}
}

func TestProcessSubmission(t *testing.T) {
	t.Run("sends one multipart request and decodes the result", func(t *testing.T) {
		var calls int

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/transcribe", r.URL.Path)

			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "clinical", r.FormValue("template_type"))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "note.mp3", header.Filename)

			audio, err := io.ReadAll(file)
			require.NoError(t, err)
			assert.Equal(t, []byte("fake audio bytes"), audio)

			// Default mode submissions must not carry a template part.
			_, _, err = r.FormFile("template_file")
			assert.Error(t, err)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"transcript":   "patient presents with a cough",
				"data":         map[string]string{"Patient Name": "Jane", "Diagnosis": "cough"},
				"placeholders": []string{"Patient Name", "Diagnosis"},
			})
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		result, err := client.ProcessSubmission(context.Background(), docengine.ProcessRequest{
			Audio:    audioUpload(),
			Category: docengine.CategoryClinical,
			Mode:     docengine.TemplateModeDefault,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, "patient presents with a cough", result.Transcript)
		assert.Equal(t, []string{"Patient Name", "Diagnosis"}, result.Placeholders)
		assert.Equal(t, "Jane", result.Data["Patient Name"])
		assert.Empty(t, result.CustomTemplateID)
	})

	t.Run("forwards the custom template part", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))

			tpl, header, err := r.FormFile("template_file")
			require.NoError(t, err)
			defer tpl.Close()
			assert.Equal(t, "contract.docx", header.Filename)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"transcript":         "hello",
				"data":               map[string]string{},
				"placeholders":       []string{},
				"custom_template_id": "tpl-123",
			})
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		result, err := client.ProcessSubmission(context.Background(), docengine.ProcessRequest{
			Audio:    audioUpload(),
			Category: docengine.CategoryCorporate,
			Mode:     docengine.TemplateModeCustom,
			Template: docengine.Upload{Name: "contract.docx", Data: []byte("PK fake docx")},
		})

		require.NoError(t, err)
		assert.Equal(t, "tpl-123", result.CustomTemplateID)
	})

	t.Run("absent data and placeholders decode as empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"transcript": "just talk"}`))
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		result, err := client.ProcessSubmission(context.Background(), docengine.ProcessRequest{
			Audio:    audioUpload(),
			Category: docengine.CategoryClinical,
			Mode:     docengine.TemplateModeDefault,
		})

		require.NoError(t, err)
		assert.NotNil(t, result.Data)
		assert.Empty(t, result.Data)
		assert.NotNil(t, result.Placeholders)
		assert.Empty(t, result.Placeholders)
	})

	t.Run("rejects empty audio before any request", func(t *testing.T) {
		client := docengine.NewClient("http://127.0.0.1:0")
		_, err := client.ProcessSubmission(context.Background(), docengine.ProcessRequest{
			Category: docengine.CategoryClinical,
			Mode:     docengine.TemplateModeDefault,
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "audio")
	})

	t.Run("rejects custom mode without a template", func(t *testing.T) {
		client := docengine.NewClient("http://127.0.0.1:0")
		_, err := client.ProcessSubmission(context.Background(), docengine.ProcessRequest{
			Audio:    audioUpload(),
			Category: docengine.CategoryClinical,
			Mode:     docengine.TemplateModeCustom,
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "template")
	})

	t.Run("non-success status yields a RemoteError with detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail": "Transcription failed"}`))
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		_, err := client.ProcessSubmission(context.Background(), docengine.ProcessRequest{
			Audio:    audioUpload(),
			Category: docengine.CategoryClinical,
			Mode:     docengine.TemplateModeDefault,
		})

		var remote *docengine.RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, http.StatusInternalServerError, remote.Status)
		assert.Equal(t, "Transcription failed", remote.Detail)
	})

	t.Run("unreachable server yields a transport error", func(t *testing.T) {
		// Server started and immediately closed so the port refuses connections.
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		client := docengine.NewClient(srv.URL)
		_, err := client.ProcessSubmission(context.Background(), docengine.ProcessRequest{
			Audio:    audioUpload(),
			Category: docengine.CategoryClinical,
			Mode:     docengine.TemplateModeDefault,
		})

		require.ErrorIs(t, err, docengine.ErrTransport)
	})

	t.Run("undecodable body yields a malformed response error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		_, err := client.ProcessSubmission(context.Background(), docengine.ProcessRequest{
			Audio:    audioUpload(),
			Category: docengine.CategoryClinical,
			Mode:     docengine.TemplateModeDefault,
		})

		require.ErrorIs(t, err, docengine.ErrMalformedResponse)
	})
}

func TestGenerateDocument(t *testing.T) {
	t.Run("posts fields and returns document with filename", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/generate-docx", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "clinical", body["template_type"])
			assert.Equal(t, map[string]any{"Patient Name": "Jane"}, body["data"])

			// No custom template id was set, so the key must be absent.
			_, present := body["custom_template_id"]
			assert.False(t, present)

			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
			w.Header().Set("Content-Disposition", `attachment; filename="clinical_document.docx"`)
			_, _ = w.Write([]byte("PK docx bytes"))
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		result, err := client.GenerateDocument(context.Background(), docengine.GenerateRequest{
			Fields:   map[string]string{"Patient Name": "Jane"},
			Category: docengine.CategoryClinical,
		})

		require.NoError(t, err)
		assert.Equal(t, []byte("PK docx bytes"), result.Document)
		assert.Equal(t, "clinical_document.docx", result.Filename)
	})

	t.Run("echoes the custom template id verbatim", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "tpl-abc-123", body["custom_template_id"])

			_, _ = w.Write([]byte("PK docx bytes"))
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		_, err := client.GenerateDocument(context.Background(), docengine.GenerateRequest{
			Fields:           map[string]string{},
			Category:         docengine.CategoryCorporate,
			CustomTemplateID: "tpl-abc-123",
		})

		require.NoError(t, err)
	})

	t.Run("empty field map is permitted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{}, body["data"])

			_, _ = w.Write([]byte("PK docx bytes"))
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		_, err := client.GenerateDocument(context.Background(), docengine.GenerateRequest{
			Category: docengine.CategoryClinical,
		})

		require.NoError(t, err)
	})

	t.Run("empty document payload is malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		_, err := client.GenerateDocument(context.Background(), docengine.GenerateRequest{
			Category: docengine.CategoryClinical,
		})

		require.ErrorIs(t, err, docengine.ErrMalformedResponse)
	})

	t.Run("remote failure carries the engine detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail": "Template tpl-1 missing"}`))
		}))
		defer srv.Close()

		client := docengine.NewClient(srv.URL)
		_, err := client.GenerateDocument(context.Background(), docengine.GenerateRequest{
			Category:         docengine.CategoryClinical,
			CustomTemplateID: "tpl-1",
		})

		var remote *docengine.RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, "Template tpl-1 missing", remote.Detail)
	})
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "remote error uses detail",
			err:  &docengine.RemoteError{Status: 500, Detail: "Transcription failed"},
			want: "Transcription failed",
		},
		{
			name: "remote error without detail uses status text",
			err:  &docengine.RemoteError{Status: 502},
			want: "document engine returned status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, docengine.UserMessage(tt.err))
		})
	}

	t.Run("transport and malformed errors are readable", func(t *testing.T) {
		assert.NotEmpty(t, docengine.UserMessage(docengine.ErrTransport))
		assert.NotEmpty(t, docengine.UserMessage(docengine.ErrMalformedResponse))
	})
}
