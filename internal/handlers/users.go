package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/pkg/response"
)

type UserHandler struct {
	accounts *services.AccountService
}

func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	filters := services.AccountFilters{
		ListOptions: listOptions(c),
		Role:        strings.TrimSpace(c.Query("role")),
		Active:      parseBoolQuery(c, "active"),
	}
	accounts, total, err := h.accounts.List(requestContext(c), identity, filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, accounts, total)
}

// POST /api/users/:id/activate
func (h *UserHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// POST /api/users/:id/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	account, err := h.accounts.SetActive(requestContext(c), identity, c.Param("id"), active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account)
}
