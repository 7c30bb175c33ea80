package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appreview "github.com/ledgerline/backend/internal/application/review"
	"github.com/ledgerline/backend/internal/domain/review"
)

// ReviewHandler exposes the four review pipelines and their run history
type ReviewHandler struct {
	BaseHandler
	documentsService *appreview.DocumentReviewService
	booksService     *appreview.BooksReviewService
	bankService      *appreview.BankReviewService
	queryService     *appreview.RunQueryService
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(
	documentsService *appreview.DocumentReviewService,
	booksService *appreview.BooksReviewService,
	bankService *appreview.BankReviewService,
	queryService *appreview.RunQueryService,
) *ReviewHandler {
	return &ReviewHandler{
		documentsService: documentsService,
		booksService:     booksService,
		bankService:      bankService,
		queryService:     queryService,
	}
}

// RegisterRoutes registers all review pipeline routes
func (h *ReviewHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/agentic")
	{
		group.POST("/receipts/run", h.RunReceipts)
		group.GET("/receipts/runs", h.listRunsOf(review.RunTypeReceipts))
		group.POST("/invoices/run", h.RunInvoices)
		group.GET("/invoices/runs", h.listRunsOf(review.RunTypeInvoices))
		group.POST("/books-review/run", h.RunBooks)
		group.GET("/books-review/runs", h.listRunsOf(review.RunTypeBooks))
		group.POST("/bank-review/run", h.RunBank)
		group.GET("/bank-review/runs", h.listRunsOf(review.RunTypeBank))

		group.GET("/runs", h.ListRuns)
		group.GET("/run/:id", h.GetRun)
	}
}

// RunReceipts starts a receipts review over the submitted documents
func (h *ReviewHandler) RunReceipts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req appreview.RunDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.documentsService.RunReceipts(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RunInvoices starts an invoices review over the submitted documents
func (h *ReviewHandler) RunInvoices(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req appreview.RunDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.documentsService.RunInvoices(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RunBooks starts a books review over a period
func (h *ReviewHandler) RunBooks(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req appreview.BooksReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.booksService.Run(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RunBank starts a bank review over a period
func (h *ReviewHandler) RunBank(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req appreview.BankReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.bankService.Run(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListRuns returns recent runs across all pipelines, optionally narrowed
// by run_type and status
func (h *ReviewHandler) ListRuns(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	query, err := parseListRunsQuery(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	runs, err := h.queryService.ListRuns(c.Request.Context(), tenantID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, runs)
}

// GetRun returns one run with its audited documents when the pipeline
// produces them
func (h *ReviewHandler) GetRun(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID format")
		return
	}

	resp, err := h.queryService.GetRun(c.Request.Context(), tenantID, runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// listRunsOf pins the run listing to one pipeline
func (h *ReviewHandler) listRunsOf(runType review.RunType) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := getTenantID(c)
		if err != nil {
			h.BadRequest(c, "Invalid tenant ID")
			return
		}

		query, err := parseListRunsQuery(c)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		query.RunType = string(runType)

		runs, err := h.queryService.ListRuns(c.Request.Context(), tenantID, query)
		if err != nil {
			h.HandleError(c, err)
			return
		}

		h.Success(c, runs)
	}
}

// parseListRunsQuery reads the optional run listing filters
func parseListRunsQuery(c *gin.Context) (appreview.ListRunsQuery, error) {
	query := appreview.ListRunsQuery{
		RunType: c.Query("run_type"),
		Status:  c.Query("status"),
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
