package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/pkg/response"
)

type ClearanceHandler struct {
	clearances *services.ClearanceService
}

func NewClearanceHandler(clearances *services.ClearanceService) *ClearanceHandler {
	return &ClearanceHandler{clearances: clearances}
}

// GET /api/clearances
func (h *ClearanceHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	filters := services.ClearanceFilters{
		ListOptions: listOptions(c),
		ResidentID:  strings.TrimSpace(c.Query("residentId")),
		Status:      strings.TrimSpace(c.Query("status")),
		Type:        strings.TrimSpace(c.Query("type")),
	}
	clearances, total, err := h.clearances.List(requestContext(c), identity, filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, clearances, total)
}

// GET /api/clearances/:id
func (h *ClearanceHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	clearance, err := h.clearances.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clearance)
}

// GET /api/clearances/:id/qr?size=256
func (h *ClearanceHandler) QRCode(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	png, err := h.clearances.QRCode(requestContext(c), identity, c.Param("id"), parseIntQuery(c, "size", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// POST /api/clearances
func (h *ClearanceHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.ClearanceInput
	if !bindAndValidate(c, &req) {
		return
	}

	clearance, err := h.clearances.Create(requestContext(c), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, clearance)
}

// PUT /api/clearances/:id
func (h *ClearanceHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.ClearanceInput
	if !bindAndValidate(c, &req) {
		return
	}

	clearance, err := h.clearances.Update(requestContext(c), identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clearance)
}

// DELETE /api/clearances/:id
func (h *ClearanceHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.clearances.Delete(requestContext(c), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
