package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/pkg/response"
)

type ResidentHandler struct {
	residents *services.ResidentService
}

func NewResidentHandler(residents *services.ResidentService) *ResidentHandler {
	return &ResidentHandler{residents: residents}
}

// GET /api/residents
func (h *ResidentHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	filters := services.ResidentFilters{
		ListOptions: listOptions(c),
		Purok:       strings.TrimSpace(c.Query("purok")),
		Status:      strings.TrimSpace(c.Query("status")),
	}
	residents, total, err := h.residents.List(requestContext(c), identity, filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, residents, total)
}

// GET /api/residents/:id
func (h *ResidentHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	resident, err := h.residents.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, resident)
}

// POST /api/residents
func (h *ResidentHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.ResidentInput
	if !bindAndValidate(c, &req) {
		return
	}

	resident, err := h.residents.Create(requestContext(c), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resident)
}

// PUT /api/residents/:id
func (h *ResidentHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.ResidentInput
	if !bindAndValidate(c, &req) {
		return
	}

	resident, err := h.residents.Update(requestContext(c), identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, resident)
}

// DELETE /api/residents/:id
func (h *ResidentHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.residents.Delete(requestContext(c), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
