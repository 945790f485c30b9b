package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/pkg/response"
)

type FolderHandler struct {
	folders *services.FolderService
}

func NewFolderHandler(folders *services.FolderService) *FolderHandler {
	return &FolderHandler{folders: folders}
}

// GET /api/folders
func (h *FolderHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	folders, total, err := h.folders.List(requestContext(c), identity, listOptions(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, folders, total)
}

// GET /api/folders/:id
func (h *FolderHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	folder, err := h.folders.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, folder)
}

// POST /api/folders
func (h *FolderHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.FolderInput
	if !bindAndValidate(c, &req) {
		return
	}

	folder, err := h.folders.Create(requestContext(c), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, folder)
}

// PUT /api/folders/:id
func (h *FolderHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.FolderInput
	if !bindAndValidate(c, &req) {
		return
	}

	folder, err := h.folders.Update(requestContext(c), identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, folder)
}

// DELETE /api/folders/:id
func (h *FolderHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.folders.Delete(requestContext(c), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
