package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appbanking "github.com/ledgerline/backend/internal/application/banking"
	appledger "github.com/ledgerline/backend/internal/application/ledger"
)

// BankingHandler exposes the bank feed: account registration, statement
// row ingestion, suggestions, merchant rules and the allocation engine
type BankingHandler struct {
	BaseHandler
	feedService       *appbanking.BankFeedService
	accountService    *appbanking.BankAccountService
	ruleService       *appbanking.BankRuleService
	allocationService *appledger.AllocationService
}

// NewBankingHandler creates a new BankingHandler
func NewBankingHandler(
	feedService *appbanking.BankFeedService,
	accountService *appbanking.BankAccountService,
	ruleService *appbanking.BankRuleService,
	allocationService *appledger.AllocationService,
) *BankingHandler {
	return &BankingHandler{
		feedService:       feedService,
		accountService:    accountService,
		ruleService:       ruleService,
		allocationService: allocationService,
	}
}

// RegisterRoutes registers all banking routes
func (h *BankingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/banking")
	{
		group.GET("/accounts", h.ListAccounts)
		group.POST("/accounts", h.CreateAccount)
		group.POST("/accounts/:id/link", h.LinkLedgerAccount)

		group.POST("/transactions/import", h.ImportTransactions)
		group.GET("/transactions", h.ListTransactions)
		group.GET("/transactions/:id", h.GetTransaction)
		group.POST("/transactions/:id/suggest", h.SuggestMatch)
		group.POST("/transactions/:id/allocate", h.Allocate)

		group.GET("/rules", h.ListRules)
		group.POST("/rules", h.CreateRule)
	}
}

// ListAccounts returns the tenant's registered feed sources
func (h *BankingHandler) ListAccounts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, accounts)
}

// CreateAccount registers a feed source
func (h *BankingHandler) CreateAccount(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req appbanking.CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, account)
}

// LinkLedgerAccount points a bank account at its ledger shadow
func (h *BankingHandler) LinkLedgerAccount(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	bankAccountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bank account ID format")
		return
	}

	var req appbanking.LinkLedgerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.LinkLedgerAccount(c.Request.Context(), tenantID, bankAccountID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// ImportTransactions loads a batch of already-parsed statement rows,
// deduplicates them and runs the suggestion write-path on the survivors
func (h *BankingHandler) ImportTransactions(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req appbanking.ImportTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.feedService.ImportTransactions(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListTransactions returns feed lines with their persisted suggestions.
// The listing never recomputes suggestions; POST /suggest does.
func (h *BankingHandler) ListTransactions(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	query, err := parseListTransactionsQuery(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	txs, err := h.feedService.ListTransactions(c.Request.Context(), tenantID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, txs)
}

// GetTransaction returns one feed line
func (h *BankingHandler) GetTransaction(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	tx, err := h.feedService.GetTransaction(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// SuggestMatch recomputes and persists the matching hint for one line
func (h *BankingHandler) SuggestMatch(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	tx, err := h.feedService.SuggestMatch(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// Allocate posts one bank transaction into the ledger through the
// allocation engine
func (h *BankingHandler) Allocate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	var req appledger.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.allocationService.Allocate(c.Request.Context(), tenantID, userID, transactionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListRules returns the tenant's merchant pattern rules
func (h *BankingHandler) ListRules(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rules)
}

// CreateRule registers a merchant pattern rule
func (h *BankingHandler) CreateRule(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req appbanking.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, rule)
}

// parseListTransactionsQuery reads the optional feed listing filters
func parseListTransactionsQuery(c *gin.Context) (appbanking.ListTransactionsQuery, error) {
	var query appbanking.ListTransactionsQuery

	if raw := c.Query("account"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return query, err
		}
		query.BankAccountID = &id
	}
	if raw := c.Query("status"); raw != "" {
		query.Status = &raw
	}
	if raw := c.Query("from"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			return query, err
		}
		query.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			return query, err
		}
		query.To = &t
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query, err
		}
		query.Limit = limit
	}
	return query, nil
}
