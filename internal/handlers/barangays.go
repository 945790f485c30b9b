package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	appErrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/response"
)

type BarangayHandler struct {
	tenants *services.TenantService
}

func NewBarangayHandler(tenants *services.TenantService) *BarangayHandler {
	return &BarangayHandler{tenants: tenants}
}

// GET /api/barangays
func (h *BarangayHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	tenants, total, err := h.tenants.List(requestContext(c), identity, listOptions(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, tenants, total)
}

// POST /api/barangays
func (h *BarangayHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.TenantInput
	if !bindAndValidate(c, &req) {
		return
	}

	tenant, err := h.tenants.Create(requestContext(c), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, tenant)
}

// GET /api/barangays/:id
func (h *BarangayHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	tenant, err := h.tenants.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tenant)
}

// PUT /api/barangays/:id
func (h *BarangayHandler) Update(c *gin.Context) {
	h.update(c, c.Param("id"))
}

// GET /api/barangay
func (h *BarangayHandler) Current(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	tenant, err := h.tenants.Current(requestContext(c), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"barangay":   tenant,
		"configured": services.IsConfigured(tenant),
	})
}

// PUT /api/barangay
func (h *BarangayHandler) UpdateCurrent(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	own, assigned := identity.Tenant()
	if !assigned {
		response.Error(c, appErrors.ErrTenantNotAssigned)
		return
	}
	h.update(c, own)
}

func (h *BarangayHandler) update(c *gin.Context, id string) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.TenantInput
	if !bindAndValidate(c, &req) {
		return
	}

	tenant, err := h.tenants.Update(requestContext(c), identity, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tenant)
}
