// api/handlers/upload_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-uploads/api/middleware"
	"github.com/Annany2002/nebula-uploads/api/models"
	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/forms"
	"github.com/Annany2002/nebula-uploads/internal/logger"
	"github.com/Annany2002/nebula-uploads/internal/upload"
)

var customLog = logger.NewLogger()

const (
	// multipartMemory caps how much of a multipart body is held in memory; the rest spills to disk.
	multipartMemory = 32 << 20
	// bodyHeadroom covers form fields and multipart framing on top of the largest accepted file.
	bodyHeadroom = 1 << 20
)

// UploadHandler serves the upload form endpoints.
type UploadHandler struct {
	Service *upload.Service
	Cfg     *config.Config
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(service *upload.Service, cfg *config.Config) *UploadHandler {
	return &UploadHandler{
		Service: service,
		Cfg:     cfg,
	}
}

// ListDatabases returns the databases the caller may upload into.
func (h *UploadHandler) ListDatabases(c *gin.Context) {
	user := middleware.CurrentUser(c)

	databases, err := h.Service.EligibleDatabases(c.Request.Context(), user)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.ListDatabasesResponse{Databases: models.DatabaseOptionsFrom(databases)})
}

// DescribeForm returns the field set of one upload form.
func (h *UploadHandler) DescribeForm(c *gin.Context) {
	format, err := upload.ParseFormat(c.Param("format"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	description, err := h.Service.Describe(c.Request.Context(), middleware.CurrentUser(c), format)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, description)
}

// Submit validates a form post and hands the upload request to the pipeline.
func (h *UploadHandler) Submit(c *gin.Context) {
	format, err := upload.ParseFormat(c.Param("format"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes())
	sub, err := readSubmission(c.Request)
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: reading form: %w", middleware.ErrBadRequest, err))
		return
	}

	user := middleware.CurrentUser(c)
	req, err := h.Service.Submit(c.Request.Context(), user, format, middleware.CurrentRequestID(c), sub)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Handler: accepted %s upload %s for UserID %d", format, req.ID, user.ID)
	c.JSON(http.StatusAccepted, models.SubmitUploadResponse{
		Message: fmt.Sprintf("Upload of table %q accepted", req.TableName),
		Request: req,
	})
}

// maxBodyBytes bounds a submission by the CSV size limit plus room for the other fields.
func (h *UploadHandler) maxBodyBytes() int64 {
	return h.Cfg.Upload.CSVMaxSizeBytes + bodyHeadroom
}

// readSubmission collects form values and file headers. Non-multipart bodies are read as
// url-encoded forms, which carry no files.
func readSubmission(r *http.Request) (forms.Submission, error) {
	sub := forms.Submission{
		Values: map[string][]string{},
		Files:  map[string][]forms.File{},
	}

	err := r.ParseMultipartForm(multipartMemory)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			return sub, err
		}
		for name, values := range r.PostForm {
			sub.Values[name] = values
		}
		return sub, nil
	case err != nil:
		return sub, err
	}

	for name, values := range r.MultipartForm.Value {
		sub.Values[name] = values
	}
	for name, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			sub.Files[name] = append(sub.Files[name], forms.File{Name: fh.Filename, Size: fh.Size})
		}
	}
	return sub, nil
}
