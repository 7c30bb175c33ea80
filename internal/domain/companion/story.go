package companion

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// StoryDebounce is the minimum gap between regenerations for unchanged
// data.
const StoryDebounce = 300 * time.Second

// StoryFingerprintLength is the stored prefix of the data fingerprint
const StoryFingerprintLength = 16

// StoryContent is the narrative payload, stored as JSONB
type StoryContent map[string]any

// Value implements driver.Valuer for JSONB storage
func (c StoryContent) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB retrieval
func (c *StoryContent) Scan(value interface{}) error {
	if value == nil {
		*c = StoryContent{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan StoryContent: unsupported type")
	}
	if len(bytes) == 0 {
		*c = StoryContent{}
		return nil
	}
	return json.Unmarshal(bytes, c)
}

// Story is the cached per-tenant narrative. The read path serves it
// as-is; only the worker regenerates it.
type Story struct {
	shared.TenantAggregateRoot
	Content     StoryContent `json:"content"`
	Fingerprint string       `json:"fingerprint"`
	GeneratedAt time.Time    `json:"generated_at"`
	IsFallback  bool         `json:"is_fallback"`
}

// NewStory caches a freshly generated narrative
func NewStory(tenantID uuid.UUID, content StoryContent, fingerprint string, fallback bool) *Story {
	return &Story{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Content:             content,
		Fingerprint:         fingerprint,
		GeneratedAt:         time.Now(),
		IsFallback:          fallback,
	}
}

// Replace swaps in a new narrative in place
func (s *Story) Replace(content StoryContent, fingerprint string, fallback bool) {
	s.Content = content
	s.Fingerprint = fingerprint
	s.GeneratedAt = time.Now()
	s.IsFallback = fallback
}

// StoryState tracks regeneration bookkeeping separately from the cached
// narrative so write paths flip a flag without touching the story row.
type StoryState struct {
	shared.TenantAggregateRoot
	NeedsRegeneration bool       `json:"needs_regeneration"`
	LastRequestedAt   *time.Time `json:"last_requested_at,omitempty"`
}

// NewStoryState creates the per-tenant regeneration record
func NewStoryState(tenantID uuid.UUID) *StoryState {
	return &StoryState{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		NeedsRegeneration:   true,
	}
}

// MarkDirty flags the tenant for the next worker pass
func (s *StoryState) MarkDirty() {
	s.NeedsRegeneration = true
}

// MarkClean records a completed regeneration
func (s *StoryState) MarkClean() {
	s.NeedsRegeneration = false
}

// TouchRequested records a read-path request, used for prioritization
func (s *StoryState) TouchRequested() {
	now := time.Now()
	s.LastRequestedAt = &now
}

// storyIssueProjection is the minimal issue slice inside the fingerprint
type storyIssueProjection struct {
	ID       uuid.UUID     `json:"id"`
	Surface  Surface       `json:"surface"`
	Severity IssueSeverity `json:"severity"`
	Status   IssueStatus   `json:"status"`
	Title    string        `json:"title"`
}

// StoryFingerprint hashes the radar and the top issues into the cache
// key. Serialization is stable: fixed radar order, display-sorted
// issues truncated to ten.
func StoryFingerprint(radar Radar, issues []Issue) string {
	sorted := make([]Issue, len(issues))
	copy(sorted, issues)
	SortForDisplay(sorted)
	if len(sorted) > 10 {
		sorted = sorted[:10]
	}

	projections := make([]storyIssueProjection, 0, len(sorted))
	for _, i := range sorted {
		projections = append(projections, storyIssueProjection{
			ID: i.ID, Surface: i.Surface, Severity: i.Severity, Status: i.Status, Title: i.Title,
		})
	}

	payload, err := json.Marshal(struct {
		Radar  Radar                  `json:"radar"`
		Issues []storyIssueProjection `json:"issues"`
	}{Radar: radar, Issues: projections})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:StoryFingerprintLength]
}

// ShouldRegenerate applies the regeneration gate: skip only when the
// fingerprint is unchanged, the story is fresh, and it is not the
// fallback.
func ShouldRegenerate(story *Story, fingerprint string, now time.Time) bool {
	if story == nil {
		return true
	}
	if story.IsFallback {
		return true
	}
	if story.Fingerprint != fingerprint {
		return true
	}
	return now.Sub(story.GeneratedAt) > StoryDebounce
}

// FallbackStory is served when generation fails or nothing is cached
func FallbackStory() StoryContent {
	return StoryContent{
		"headline": "Your books at a glance",
		"body": "We could not prepare a fresh summary right now. " +
			"Your reconciliation and review numbers below are up to date.",
		"sections": []any{},
	}
}
