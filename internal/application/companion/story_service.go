package companion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/companion"
	"github.com/ledgerline/backend/internal/infrastructure/advisor"
	"github.com/ledgerline/backend/internal/infrastructure/telemetry"
)

// StoryService owns the cached tenant narrative. Reads never touch the
// LLM: they serve the cache or the fallback and flag the tenant dirty.
// Regeneration is fingerprint-gated and runs from the periodic worker
// or inline after review activity.
type StoryService struct {
	storyRepo companion.StoryRepository
	issueRepo companion.IssueRepository
	advisor   advisor.Advisor
	logger    *zap.Logger
	now       func() time.Time
}

// NewStoryService creates a new StoryService
func NewStoryService(storyRepo companion.StoryRepository, issueRepo companion.IssueRepository, logger *zap.Logger) *StoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryService{
		storyRepo: storyRepo,
		issueRepo: issueRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// SetAdvisor enables narrative generation; without it every
// regeneration persists the fallback story.
func (s *StoryService) SetAdvisor(a advisor.Advisor) {
	s.advisor = a
}

// GetStory serves the cached narrative. A cache miss returns the
// fallback and marks the tenant for the next worker pass.
func (s *StoryService) GetStory(ctx context.Context, tenantID uuid.UUID) (*StoryView, error) {
	story, err := s.storyRepo.FindStory(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.touchRequested(ctx, tenantID, story == nil); err != nil {
		s.logger.Warn("story state could not be updated", zap.Error(err))
	}
	if story == nil {
		return &StoryView{Content: companion.FallbackStory(), IsFallback: true}, nil
	}
	generatedAt := story.GeneratedAt
	return &StoryView{Content: story.Content, GeneratedAt: &generatedAt, IsFallback: story.IsFallback}, nil
}

// MarkDirty flags the tenant for regeneration; write paths call this
// whenever story inputs may have changed.
func (s *StoryService) MarkDirty(ctx context.Context, tenantID uuid.UUID) error {
	state, err := s.storyRepo.FindState(ctx, tenantID)
	if err != nil {
		return err
	}
	if state == nil {
		state = companion.NewStoryState(tenantID)
	} else {
		state.MarkDirty()
	}
	return s.storyRepo.SaveState(ctx, state)
}

// touchRequested records the read and, on a cache miss, flags the
// tenant dirty so the worker fills the cache.
func (s *StoryService) touchRequested(ctx context.Context, tenantID uuid.UUID, miss bool) error {
	state, err := s.storyRepo.FindState(ctx, tenantID)
	if err != nil {
		return err
	}
	if state == nil {
		state = companion.NewStoryState(tenantID)
	}
	state.TouchRequested()
	if miss {
		state.MarkDirty()
	}
	return s.storyRepo.SaveState(ctx, state)
}

// Regenerate rebuilds the tenant narrative when its inputs changed.
// Unchanged inputs inside the debounce window skip the advisor
// entirely; advisor failures persist the fallback so the read path
// always has something to serve.
func (s *StoryService) Regenerate(ctx context.Context, tenantID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "companion", "regenerate_story")
	defer span.End()

	issues, err := s.issueRepo.FindForTenant(ctx, tenantID, companion.IssueFilter{})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	radar := companion.ComputeRadar(issues, s.now())
	fingerprint := companion.StoryFingerprint(radar, issues)

	story, err := s.storyRepo.FindStory(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !companion.ShouldRegenerate(story, fingerprint, s.now()) {
		return s.markClean(ctx, tenantID)
	}

	content, fallback := s.generate(ctx, radar, issues)
	if story == nil {
		story = companion.NewStory(tenantID, content, fingerprint, fallback)
	} else {
		story.Replace(content, fingerprint, fallback)
	}
	if err := s.storyRepo.SaveStory(ctx, story); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return s.markClean(ctx, tenantID)
}

// DrainDirty regenerates stories for tenants flagged dirty, up to the
// batch limit. Per-tenant failures log and leave the tenant dirty for
// the next pass.
func (s *StoryService) DrainDirty(ctx context.Context, limit int) (int, error) {
	tenants, err := s.storyRepo.FindDirtyTenants(ctx, limit)
	if err != nil {
		return 0, err
	}
	drained := 0
	for _, tenantID := range tenants {
		if err := s.Regenerate(ctx, tenantID); err != nil {
			s.logger.Warn("story regeneration failed",
				zap.String("tenant_id", tenantID.String()), zap.Error(err))
			continue
		}
		drained++
	}
	return drained, nil
}

// generate calls the advisor under its long watchdog; a nil result
// degrades to the fallback narrative.
func (s *StoryService) generate(ctx context.Context, radar companion.Radar, issues []companion.Issue) (companion.StoryContent, bool) {
	if s.advisor == nil {
		return companion.FallbackStory(), true
	}

	companion.SortForDisplay(issues)
	if len(issues) > 10 {
		issues = issues[:10]
	}
	findings := make([]advisor.Finding, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		findings = append(findings, advisor.Finding{
			ID:       issue.ID.String(),
			Kind:     string(issue.Surface),
			Severity: string(issue.Severity),
			Title:    issue.Title,
			Detail:   issue.Description,
		})
	}
	radarMap := make(map[string]float64, len(radar))
	for _, axis := range radar {
		radarMap[axis.Axis] = axis.Score.InexactFloat64()
	}

	narrative, err := s.advisor.Story(ctx, advisor.StoryRequest{
		Radar:  radarMap,
		Issues: findings,
	})
	if err != nil || narrative == nil {
		if err != nil {
			s.logger.Warn("story advisor unavailable", zap.Error(err))
		}
		return companion.FallbackStory(), true
	}

	sections := make([]any, 0, len(narrative.Sections))
	for _, section := range narrative.Sections {
		sections = append(sections, map[string]any{
			"title":   section.Title,
			"body":    section.Body,
			"surface": section.Surface,
		})
	}
	return companion.StoryContent{
		"headline": narrative.Headline,
		"body":     narrative.Body,
		"sections": sections,
	}, false
}

func (s *StoryService) markClean(ctx context.Context, tenantID uuid.UUID) error {
	state, err := s.storyRepo.FindState(ctx, tenantID)
	if err != nil {
		return err
	}
	if state == nil {
		state = companion.NewStoryState(tenantID)
	}
	state.MarkClean()
	return s.storyRepo.SaveState(ctx, state)
}
