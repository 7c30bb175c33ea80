package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apprecon "github.com/ledgerline/backend/internal/application/reconciliation"
	"github.com/ledgerline/backend/internal/interfaces/http/middleware"
)

// reconciliationManagePermission marks callers allowed to reopen or delete
// completed sessions.
const reconciliationManagePermission = "reconciliation:manage"

// isStaff reports whether the caller may perform privileged reconciliation
// actions. Falls back to a header in development, mirroring getTenantID.
func isStaff(c *gin.Context) bool {
	if claims := middleware.GetJWTClaims(c); claims != nil {
		for _, p := range claims.Permissions {
			if p == reconciliationManagePermission || p == "*" {
				return true
			}
		}
		return false
	}
	return c.GetHeader("X-Staff") == "true"
}

// ReconciliationHandler exposes the statement reconciliation workspace
type ReconciliationHandler struct {
	BaseHandler
	service *apprecon.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(service *apprecon.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

// RegisterRoutes registers all reconciliation routes
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/reconciliation")
	{
		group.GET("/accounts", h.ListAccounts)
		group.GET("/accounts/:id/periods", h.ListPeriods)
		group.GET("/session", h.ResolveSession)
		group.POST("/session/:id/set_statement_balance", h.SetStatementBalance)
		group.POST("/session/:id/match", h.Match)
		group.POST("/session/:id/unmatch", h.Unmatch)
		group.POST("/session/:id/exclude", h.Exclude)
		group.POST("/session/:id/complete", h.Complete)
		group.POST("/sessions/:id/reopen", h.Reopen)
		group.DELETE("/sessions/:id", h.DeleteSession)
		group.POST("/add-as-new", h.AddAsNew)
	}
}

// ListAccounts returns the bank accounts offered on the reconciliation
// landing screen, with live ledger balances where linked
func (h *ReconciliationHandler) ListAccounts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, accounts)
}

// ListPeriods returns the month buckets available for one bank account,
// locked where a completed session covers the month
func (h *ReconciliationHandler) ListPeriods(c *gin.Context) {
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

	periods, err := h.service.ListPeriods(c.Request.Context(), tenantID, bankAccountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, periods)
}

// ResolveSession gets or creates the session for a statement window and
// returns the full workspace: header, summary, feed lines and candidates
func (h *ReconciliationHandler) ResolveSession(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	bankAccountID, err := uuid.Parse(c.Query("account"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing account query parameter")
		return
	}
	start, err := parseDateParam(c.Query("start"))
	if err != nil {
		h.BadRequest(c, "Invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := parseDateParam(c.Query("end"))
	if err != nil {
		h.BadRequest(c, "Invalid end date, expected YYYY-MM-DD")
		return
	}

	resp, err := h.service.ResolveSession(c.Request.Context(), tenantID, apprecon.ResolveSessionQuery{
		BankAccountID:  bankAccountID,
		StatementStart: start,
		StatementEnd:   end,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SetStatementBalance overrides the seeded opening or closing balance
func (h *ReconciliationHandler) SetStatementBalance(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionScope(c)
	if !ok {
		return
	}

	var req apprecon.SetStatementBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.SetStatementBalance(c.Request.Context(), tenantID, sessionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Match links one feed line with one journal entry
func (h *ReconciliationHandler) Match(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionScope(c)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req apprecon.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Match(c.Request.Context(), tenantID, userID, sessionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Unmatch tears down all matches on one feed line
func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionScope(c)
	if !ok {
		return
	}

	var req apprecon.UnmatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Unmatch(c.Request.Context(), tenantID, sessionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Exclude toggles a feed line out of or back into the session
func (h *ReconciliationHandler) Exclude(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionScope(c)
	if !ok {
		return
	}

	var req apprecon.ExcludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Exclude(c.Request.Context(), tenantID, sessionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Complete finalizes the session once the difference clears and no
// unreconciled lines remain
func (h *ReconciliationHandler) Complete(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionScope(c)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.service.Complete(c.Request.Context(), tenantID, userID, sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Reopen resets a completed session back to in-progress. Staff only.
func (h *ReconciliationHandler) Reopen(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionScope(c)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.service.Reopen(c.Request.Context(), tenantID, userID, sessionID, isStaff(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// DeleteSession detaches the feed, removes in-period matches and deletes
// the session. Staff only.
func (h *ReconciliationHandler) DeleteSession(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionScope(c)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.service.DeleteSession(c.Request.Context(), tenantID, userID, sessionID, isStaff(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// AddAsNew posts a balancing journal entry for a feed line with no ledger
// counterpart and matches the line against it in one step
func (h *ReconciliationHandler) AddAsNew(c *gin.Context) {
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

	var req apprecon.AddAsNewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.AddAsNew(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// sessionScope extracts the tenant and session path parameters, replying
// with the appropriate 4xx when either is malformed
func (h *ReconciliationHandler) sessionScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, sessionID, true
}

// parseDateParam accepts a date-only or RFC3339 timestamp value
func parseDateParam(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
