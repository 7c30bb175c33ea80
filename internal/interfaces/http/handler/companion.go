package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appcompanion "github.com/ledgerline/backend/internal/application/companion"
)

// CompanionHandler exposes the advisory read model: issues, the composite
// summary and the cached story
type CompanionHandler struct {
	BaseHandler
	issueService   *appcompanion.IssueService
	storyService   *appcompanion.StoryService
	summaryService *appcompanion.SummaryService
}

// NewCompanionHandler creates a new CompanionHandler
func NewCompanionHandler(
	issueService *appcompanion.IssueService,
	storyService *appcompanion.StoryService,
	summaryService *appcompanion.SummaryService,
) *CompanionHandler {
	return &CompanionHandler{
		issueService:   issueService,
		storyService:   storyService,
		summaryService: summaryService,
	}
}

// RegisterRoutes registers all companion routes
func (h *CompanionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/agentic/companion")
	{
		group.GET("/summary", h.GetSummary)
		group.GET("/issues", h.ListIssues)
		group.GET("/issues/:id", h.GetIssue)
		group.PATCH("/issues/:id", h.UpdateIssue)
		group.GET("/story", h.GetStory)
	}
}

// GetSummary returns the composite companion view: radar, coverage,
// close-readiness, playbook, open issues and the cached story
func (h *CompanionHandler) GetSummary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	resp, err := h.summaryService.GetSummary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListIssues returns issues in display order, optionally narrowed by
// surface, severity and status
func (h *CompanionHandler) ListIssues(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	query := appcompanion.ListIssuesQuery{
		Surface:  c.Query("surface"),
		Severity: c.Query("severity"),
		Status:   c.Query("status"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "Invalid limit")
			return
		}
		query.Limit = limit
	}

	issues, err := h.issueService.ListIssues(c.Request.Context(), tenantID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, issues)
}

// GetIssue returns one issue
func (h *CompanionHandler) GetIssue(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid issue ID format")
		return
	}

	issue, err := h.issueService.GetIssue(c.Request.Context(), tenantID, issueID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, issue)
}

// UpdateIssue moves an issue through its lifecycle
func (h *CompanionHandler) UpdateIssue(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid issue ID format")
		return
	}

	var req appcompanion.UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	issue, err := h.issueService.UpdateStatus(c.Request.Context(), tenantID, issueID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, issue)
}

// GetStory serves the cached narrative or the deterministic fallback.
// The read path never calls the language model.
func (h *CompanionHandler) GetStory(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	story, err := h.storyService.GetStory(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, story)
}
