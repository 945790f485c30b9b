package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/pkg/response"
)

type FinancialHandler struct {
	financial *services.FinancialService
}

func NewFinancialHandler(financial *services.FinancialService) *FinancialHandler {
	return &FinancialHandler{financial: financial}
}

func transactionFilters(c *gin.Context) services.TransactionFilters {
	return services.TransactionFilters{
		ListOptions: listOptions(c),
		Type:        strings.ToLower(strings.TrimSpace(c.Query("type"))),
		Category:    strings.TrimSpace(c.Query("category")),
		From:        parseTimeQuery(c, "from"),
		To:          parseTimeQuery(c, "to"),
	}
}

// GET /api/financial
func (h *FinancialHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	transactions, total, err := h.financial.List(requestContext(c), identity, transactionFilters(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, transactions, total)
}

// GET /api/financial/summary
func (h *FinancialHandler) Summary(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	summary, err := h.financial.Summary(requestContext(c), identity, transactionFilters(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// GET /api/financial/:id
func (h *FinancialHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	transaction, err := h.financial.Get(requestContext(c), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, transaction)
}

// POST /api/financial
func (h *FinancialHandler) Create(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.TransactionInput
	if !bindAndValidate(c, &req) {
		return
	}

	transaction, err := h.financial.Create(requestContext(c), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, transaction)
}

// PUT /api/financial/:id
func (h *FinancialHandler) Update(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req services.TransactionInput
	if !bindAndValidate(c, &req) {
		return
	}

	transaction, err := h.financial.Update(requestContext(c), identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, transaction)
}

// DELETE /api/financial/:id
func (h *FinancialHandler) Delete(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.financial.Delete(requestContext(c), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
