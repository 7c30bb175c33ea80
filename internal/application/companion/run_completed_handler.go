package companion

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/review"
	"github.com/ledgerline/backend/internal/domain/shared"
)

// RunCompletedHandler reacts to finished review runs: it synthesizes
// companion issues from the run's results and flags the tenant story
// for regeneration.
type RunCompletedHandler struct {
	runRepo      review.RunRepository
	issueService *IssueService
	storyService *StoryService
	logger       *zap.Logger
}

// NewRunCompletedHandler creates a new handler for review run completed events
func NewRunCompletedHandler(
	runRepo review.RunRepository,
	issueService *IssueService,
	storyService *StoryService,
	logger *zap.Logger,
) *RunCompletedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunCompletedHandler{
		runRepo:      runRepo,
		issueService: issueService,
		storyService: storyService,
		logger:       logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *RunCompletedHandler) EventTypes() []string {
	return []string{review.EventTypeRunCompleted}
}

// Handle processes a RunCompletedEvent by deriving issues and marking
// the story dirty. Failures here never affect the run itself.
func (h *RunCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*review.RunCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", review.EventTypeRunCompleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			review.EventTypeRunCompleted, event.EventType())
	}

	run, err := h.runRepo.FindByIDForTenant(ctx, completed.TenantID(), completed.AggregateID())
	if err != nil {
		h.logger.Error("failed to load completed run",
			zap.String("run_id", completed.AggregateID().String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to load completed run: %w", err)
	}

	created, err := h.issueService.SynthesizeFromRun(ctx, run)
	if err != nil {
		h.logger.Error("failed to synthesize issues from run",
			zap.String("run_id", run.ID.String()),
			zap.String("run_type", string(run.RunType)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to synthesize issues: %w", err)
	}

	if err := h.storyService.MarkDirty(ctx, run.TenantID); err != nil {
		h.logger.Warn("failed to mark story dirty after run",
			zap.String("tenant_id", run.TenantID.String()),
			zap.Error(err),
		)
	}

	h.logger.Info("companion refreshed from completed run",
		zap.String("run_id", run.ID.String()),
		zap.String("run_type", string(run.RunType)),
		zap.Int("issues_created", created),
	)
	return nil
}

// Ensure RunCompletedHandler implements shared.EventHandler
var _ shared.EventHandler = (*RunCompletedHandler)(nil)
