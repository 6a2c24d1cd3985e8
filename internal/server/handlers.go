package server

import (
	"context"
	"io"
	"net/http"

	"github.com/sobandev/docflow/internal/docengine"
	"github.com/sobandev/docflow/internal/server/engine"

	"github.com/gin-gonic/gin"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DocumentEngine is the processing backend behind the HTTP handlers.
type DocumentEngine interface {
	Process(ctx context.Context, audio []byte, category string, customTemplate []byte) (*engine.ProcessOutput, error)
	Generate(category, customTemplateID string, data map[string]string) (*engine.GenerateOutput, error)
}

// detail writes an error response in the API's {"detail": ...} shape.
func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "docflow",
	})
}

func formFileBytes(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// handleTranscribe accepts an audio upload plus template selection,
// transcribes it, and returns the extracted field values.
func (s *Server) handleTranscribe(c *gin.Context) {
	audio, err := formFileBytes(c, "file")
	if err != nil {
		detail(c, http.StatusBadRequest, "audio file is required")
		return
	}

	category := c.DefaultPostForm("template_type", string(docengine.CategoryClinical))
	if !docengine.Category(category).Valid() {
		detail(c, http.StatusBadRequest, "unknown template_type: "+category)
		return
	}

	// Optional custom template upload
	var customTemplate []byte
	if _, err := c.FormFile("template_file"); err == nil {
		customTemplate, err = formFileBytes(c, "template_file")
		if err != nil {
			detail(c, http.StatusBadRequest, "failed to read template_file")
			return
		}
	}

	out, err := s.engine.Process(c.Request.Context(), audio, category, customTemplate)
	if err != nil {
		s.logger.Error("Processing failed", "error", err, "category", category)
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := gin.H{
		"transcript":         out.Transcript,
		"data":               out.Data,
		"placeholders":       out.Placeholders,
		"custom_template_id": nil,
	}
	if out.CustomTemplateID != "" {
		resp["custom_template_id"] = out.CustomTemplateID
	}

	c.JSON(http.StatusOK, resp)
}

type generateRequest struct {
	Data             map[string]string `json:"data"`
	TemplateType     string            `json:"template_type"`
	CustomTemplateID string            `json:"custom_template_id"`
}

// handleGenerate fills the selected template with the submitted field values
// and streams back the document.
func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TemplateType == "" {
		req.TemplateType = string(docengine.CategoryClinical)
	}
	if !docengine.Category(req.TemplateType).Valid() {
		detail(c, http.StatusBadRequest, "unknown template_type: "+req.TemplateType)
		return
	}

	out, err := s.engine.Generate(req.TemplateType, req.CustomTemplateID, req.Data)
	if err != nil {
		s.logger.Error("Generation failed", "error", err, "category", req.TemplateType)
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, docxContentType, out.Document)
}
