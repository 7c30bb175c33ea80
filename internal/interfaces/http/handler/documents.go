package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appreview "github.com/ledgerline/backend/internal/application/review"
)

// DocumentsHandler exposes the presigned upload/download flow for
// receipt and invoice source files
type DocumentsHandler struct {
	BaseHandler
	storageService *appreview.DocumentStorageService
}

// NewDocumentsHandler creates a new DocumentsHandler
func NewDocumentsHandler(storageService *appreview.DocumentStorageService) *DocumentsHandler {
	return &DocumentsHandler{storageService: storageService}
}

// RegisterRoutes registers all document storage routes
func (h *DocumentsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/agentic/documents")
	{
		group.POST("/upload-url", h.InitiateUpload)
		group.GET("/:id/download-url", h.DownloadURL)
	}
}

// InitiateUpload returns a presigned upload URL and the storage key to
// submit with a later review run
func (h *DocumentsHandler) InitiateUpload(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req appreview.InitiateDocumentUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.storageService.InitiateUpload(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// DownloadURL returns a presigned download URL for an audited document's
// source file
func (h *DocumentsHandler) DownloadURL(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	resp, err := h.storageService.DownloadURL(c.Request.Context(), tenantID, documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
