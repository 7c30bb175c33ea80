package review

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// AllowedDocumentContentTypes is the whitelist for uploaded source
// documents. Receipts and invoices arrive as photos, scans or PDFs;
// anything executable or scriptable is rejected.
var AllowedDocumentContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/tiff":      true,
	"application/pdf": true,
}

// ObjectStorage issues presigned URLs for uploaded source documents.
// Implemented by the infrastructure layer (S3-compatible backends).
type ObjectStorage interface {
	// GenerateUploadURL generates a presigned URL for uploading a file
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL generates a presigned URL for downloading a file
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// DocumentStorageServiceConfig holds URL lifetimes for the document flow
type DocumentStorageServiceConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
}

// DefaultDocumentStorageServiceConfig returns the default configuration
func DefaultDocumentStorageServiceConfig() DocumentStorageServiceConfig {
	return DocumentStorageServiceConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: 1 * time.Hour,
	}
}

// InitiateDocumentUploadRequest asks for a presigned upload slot
type InitiateDocumentUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
}

// InitiateDocumentUploadResponse carries the presigned upload URL and the
// storage key the caller later submits with the review request
type InitiateDocumentUploadResponse struct {
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DocumentDownloadResponse carries a presigned download URL for an
// audited document's source file
type DocumentDownloadResponse struct {
	DocumentID uuid.UUID `json:"document_id"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DocumentStorageService hands out presigned URLs so document bytes never
// pass through the API process. Uploads happen before a review run; the
// resulting storage key travels with the run request and sticks to the
// audited document.
type DocumentStorageService struct {
	storage ObjectStorage
	docRepo review.DocumentReviewRepository
	config  DocumentStorageServiceConfig
	logger  *zap.Logger
}

// NewDocumentStorageService creates a new DocumentStorageService
func NewDocumentStorageService(
	storage ObjectStorage,
	docRepo review.DocumentReviewRepository,
	logger *zap.Logger,
) *DocumentStorageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStorageService{
		storage: storage,
		docRepo: docRepo,
		config:  DefaultDocumentStorageServiceConfig(),
		logger:  logger,
	}
}

// SetConfig sets the service configuration
func (s *DocumentStorageService) SetConfig(config DocumentStorageServiceConfig) {
	s.config = config
}

// InitiateUpload validates the file metadata and returns a presigned
// upload URL together with the generated storage key
func (s *DocumentStorageService) InitiateUpload(
	ctx context.Context,
	tenantID uuid.UUID,
	req InitiateDocumentUploadRequest,
) (*InitiateDocumentUploadResponse, error) {
	if !AllowedDocumentContentTypes[strings.ToLower(req.ContentType)] {
		return nil, shared.NewValidationError(
			fmt.Sprintf("Content type %q is not allowed; upload an image or a PDF", req.ContentType))
	}

	storageKey := s.generateStorageKey(tenantID, req.FileName)

	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, storageKey, req.ContentType, s.config.UploadURLExpiry)
	if err != nil {
		s.logger.Error("failed to generate upload URL",
			zap.String("tenant_id", tenantID.String()),
			zap.String("storage_key", storageKey),
			zap.Error(err))
		return nil, shared.NewInvariantError("Failed to generate upload URL")
	}

	return &InitiateDocumentUploadResponse{
		StorageKey: storageKey,
		UploadURL:  uploadURL,
		ExpiresAt:  expiresAt,
	}, nil
}

// DownloadURL returns a presigned download URL for an audited document's
// source file. Documents submitted inline carry no storage key.
func (s *DocumentStorageService) DownloadURL(
	ctx context.Context,
	tenantID uuid.UUID,
	documentID uuid.UUID,
) (*DocumentDownloadResponse, error) {
	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.StorageKey == nil {
		return nil, shared.NewNotFoundError("Document has no stored source file")
	}

	exists, err := s.storage.ObjectExists(ctx, *doc.StorageKey)
	if err != nil {
		return nil, shared.NewInvariantError("Failed to check stored document")
	}
	if !exists {
		return nil, shared.NewNotFoundError("Stored source file not found")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, *doc.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		return nil, shared.NewInvariantError("Failed to generate download URL")
	}

	return &DocumentDownloadResponse{
		DocumentID: doc.ID,
		URL:        url,
		ExpiresAt:  expiresAt,
	}, nil
}

// generateStorageKey produces a collision-free key scoped to the tenant
func (s *DocumentStorageService) generateStorageKey(tenantID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("tenants/%s/documents/%s%s", tenantID.String(), uuid.New().String(), ext)
}
