package review

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// RunQueryService serves run listings and run detail for every
// pipeline. It is read-only; runs are produced by the pipeline
// services.
type RunQueryService struct {
	runRepo review.RunRepository
	docRepo review.DocumentReviewRepository
	logger  *zap.Logger
}

// NewRunQueryService creates a new RunQueryService
func NewRunQueryService(runRepo review.RunRepository, docRepo review.DocumentReviewRepository, logger *zap.Logger) *RunQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunQueryService{runRepo: runRepo, docRepo: docRepo, logger: logger}
}

// ListRuns lists runs matching the query, newest first
func (s *RunQueryService) ListRuns(ctx context.Context, tenantID uuid.UUID, query ListRunsQuery) ([]RunView, error) {
	filter := review.RunFilter{Limit: query.Limit}
	if query.RunType != "" {
		runType := review.RunType(query.RunType)
		if !runType.IsValid() {
			return nil, shared.NewValidationError("invalid run type: " + query.RunType)
		}
		filter.RunType = &runType
	}
	if query.Status != "" {
		status := review.RunStatus(query.Status)
		filter.Status = &status
	}

	runs, err := s.runRepo.FindForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	views := make([]RunView, 0, len(runs))
	for i := range runs {
		views = append(views, ToRunView(&runs[i]))
	}
	return views, nil
}

// GetRun returns one run with its documents for the document pipelines
func (s *RunQueryService) GetRun(ctx context.Context, tenantID, runID uuid.UUID) (*RunResponse, error) {
	run, err := s.runRepo.FindByIDForTenant(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}

	response := &RunResponse{Run: ToRunView(run)}
	if run.RunType == review.RunTypeReceipts || run.RunType == review.RunTypeInvoices {
		docs, err := s.docRepo.FindByRun(ctx, tenantID, runID)
		if err != nil {
			return nil, err
		}
		response.Documents = make([]DocumentReviewView, 0, len(docs))
		for i := range docs {
			response.Documents = append(response.Documents, ToDocumentReviewView(&docs[i]))
		}
	}
	return response, nil
}
