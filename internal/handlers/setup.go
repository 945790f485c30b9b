package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/pkg/response"
)

type SetupHandler struct {
	accounts *services.AccountService
}

func NewSetupHandler(accounts *services.AccountService) *SetupHandler {
	return &SetupHandler{accounts: accounts}
}

// GET /api/setup/status
// firstAccount is true until someone has signed in; that login becomes the superadmin.
func (h *SetupHandler) Status(c *gin.Context) {
	first, err := h.accounts.IsFirstAccount(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"firstAccount": first})
}
