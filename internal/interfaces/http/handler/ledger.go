package handler

import (
	"github.com/gin-gonic/gin"

	appledger "github.com/ledgerline/backend/internal/application/ledger"
)

// LedgerHandler exposes the chart of accounts
type LedgerHandler struct {
	BaseHandler
	defaultsService *appledger.DefaultAccountsService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(defaultsService *appledger.DefaultAccountsService) *LedgerHandler {
	return &LedgerHandler{defaultsService: defaultsService}
}

// RegisterRoutes registers all ledger routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/ledger")
	{
		group.GET("/accounts", h.ListAccounts)
		group.POST("/accounts/defaults", h.EnsureDefaults)
	}
}

// DefaultAccountsResponse is the role-typed chart bundle
type DefaultAccountsResponse struct {
	Cash            appledger.AccountResponse `json:"cash"`
	Receivable      appledger.AccountResponse `json:"receivable"`
	Payable         appledger.AccountResponse `json:"payable"`
	SalesTaxPayable appledger.AccountResponse `json:"sales_tax_payable"`
	TaxRecoverable  appledger.AccountResponse `json:"tax_recoverable"`
	FallbackIncome  appledger.AccountResponse `json:"fallback_income"`
	FallbackExpense appledger.AccountResponse `json:"fallback_expense"`
}

// ListAccounts returns the tenant's chart of accounts
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accounts, err := h.defaultsService.ListAccounts(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]appledger.AccountResponse, len(accounts))
	for i := range accounts {
		resp[i] = appledger.ToAccountResponse(&accounts[i])
	}
	h.Success(c, resp)
}

// EnsureDefaults materializes the per-tenant chart template and returns
// the resolved role bundle. Idempotent.
func (h *LedgerHandler) EnsureDefaults(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	defaults, err := h.defaultsService.EnsureDefaults(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, DefaultAccountsResponse{
		Cash:            appledger.ToAccountResponse(defaults.Cash),
		Receivable:      appledger.ToAccountResponse(defaults.Receivable),
		Payable:         appledger.ToAccountResponse(defaults.Payable),
		SalesTaxPayable: appledger.ToAccountResponse(defaults.SalesTaxPayable),
		TaxRecoverable:  appledger.ToAccountResponse(defaults.TaxRecoverable),
		FallbackIncome:  appledger.ToAccountResponse(defaults.FallbackIncome),
		FallbackExpense: appledger.ToAccountResponse(defaults.FallbackExpense),
	})
}
