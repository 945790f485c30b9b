package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	appErrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/response"
	appValidator "github.com/charlesng35/barangay/pkg/validator"
)

type InvitationHandler struct {
	invitations *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// GET /api/invitations/verify/:code
func (h *InvitationHandler) Verify(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if appValidator.ValidateVar(code, "invitecode") != nil {
		response.Error(c, appErrors.NewBadRequest("invitation code must be 6 digits"))
		return
	}

	view, err := h.invitations.Verify(requestContext(c), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// POST /api/invitations
func (h *InvitationHandler) Issue(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.IssueInput
	if !bindAndValidate(c, &req) {
		return
	}

	invitation, err := h.invitations.Issue(requestContext(c), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invitation)
}

// GET /api/invitations
func (h *InvitationHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	filters := services.InvitationFilters{
		ListOptions: listOptions(c),
		Status:      strings.ToLower(strings.TrimSpace(c.Query("status"))),
	}
	invitations, total, err := h.invitations.List(requestContext(c), identity, filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, invitations, total)
}

// DELETE /api/invitations/:id
func (h *InvitationHandler) Revoke(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.invitations.Revoke(requestContext(c), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
