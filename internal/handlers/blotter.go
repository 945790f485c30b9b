package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/pkg/response"
)

type BlotterHandler struct {
	blotter *services.BlotterService
}

func NewBlotterHandler(blotter *services.BlotterService) *BlotterHandler {
	return &BlotterHandler{blotter: blotter}
}

// GET /api/blotter
func (h *BlotterHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	filters := services.BlotterFilters{
		ListOptions:  listOptions(c),
		Status:       strings.TrimSpace(c.Query("status")),
		IncidentType: strings.TrimSpace(c.Query("incidentType")),
	}
	entries, total, err := h.blotter.List(requestContext(c), identity, filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, entries, total)
}

// GET /api/blotter/:id
func (h *BlotterHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	entry, err := h.blotter.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// POST /api/blotter
func (h *BlotterHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.BlotterInput
	if !bindAndValidate(c, &req) {
		return
	}

	entry, err := h.blotter.Create(requestContext(c), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, entry)
}

// PUT /api/blotter/:id
func (h *BlotterHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.BlotterInput
	if !bindAndValidate(c, &req) {
		return
	}

	entry, err := h.blotter.Update(requestContext(c), identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// DELETE /api/blotter/:id
func (h *BlotterHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.blotter.Delete(requestContext(c), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
