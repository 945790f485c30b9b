package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/barangay/internal/services"
	appErrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/response"
)

// DefaultMaxUploadBytes caps a single document upload.
const DefaultMaxUploadBytes int64 = 25 << 20

type DocumentHandler struct {
	documents *services.DocumentService
	maxUpload int64
}

func NewDocumentHandler(documents *services.DocumentService, maxUpload int64) *DocumentHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &DocumentHandler{documents: documents, maxUpload: maxUpload}
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	filters := services.DocumentFilters{
		ListOptions: listOptions(c),
		FolderID:    strings.TrimSpace(c.Query("folderId")),
	}
	documents, total, err := h.documents.List(requestContext(c), identity, filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, documents, total)
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	doc, err := h.documents.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, doc)
}

// GET /api/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	doc, body, err := h.documents.Open(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, doc.Size, contentType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.FileName),
	})
}

// POST /api/documents (multipart: file, title, description, folderId, tenantId)
func (h *DocumentHandler) Upload(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.NewBadRequest(fmt.Sprintf("file exceeds the %d MB upload limit", h.maxUpload>>20)))
			return
		}
		response.Error(c, appErrors.NewBadRequest("A file is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	defer closeQuietly(file)

	doc, err := h.documents.Upload(requestContext(c), identity, services.UploadInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FolderID:    optionalForm(c, "folderId"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		TenantID:    optionalForm(c, "tenantId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, doc)
}

// PUT /api/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.DocumentInput
	if !bindAndValidate(c, &req) {
		return
	}

	doc, err := h.documents.Update(requestContext(c), identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, doc)
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.documents.Delete(requestContext(c), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func optionalForm(c *gin.Context, key string) *string {
	value := strings.TrimSpace(c.PostForm(key))
	if value == "" {
		return nil
	}
	return &value
}

func closeQuietly(closer io.Closer) {
	if err := closer.Close(); err != nil {
		logger.WithModule("documents").Debug("close upload", zap.Error(err))
	}
}
