// Package advisor wraps the LLM behind a guardrail: declared output
// schemas, watchdog timeouts, JSON repair, typed validation, and
// whitelist filtering of every referenced id. The advisor is never
// authoritative; callers treat a nil result as "advisor unavailable"
// and proceed deterministically.
package advisor

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Verdict values returned by the high-risk critic.
const (
	VerdictOK   = "ok"
	VerdictWarn = "warn"
	VerdictFail = "fail"
)

// Advisor is the outbound port consumed by the review, reconciliation,
// and companion services.
type Advisor interface {
	// Review produces a summary and recommendations for a completed
	// pipeline run. A nil result means the advisor was unavailable.
	Review(ctx context.Context, req ReviewRequest) (*ReviewAdvice, error)

	// Critic performs the advisory high-risk check on a posting. It
	// short-circuits to ok below thresholds without an LLM call and
	// never returns an error: the verdict degrades instead.
	Critic(ctx context.Context, input CriticInput) CriticResult

	// Story generates the tenant narrative. A nil result means the
	// caller should fall back to the canned story.
	Story(ctx context.Context, req StoryRequest) (*StoryNarrative, error)

	// Model names the configured model for persistence alongside results.
	Model() string
}

// ReviewRequest is the bounded payload sent for run-level advice. Only
// the findings actually included here are citable by the model.
type ReviewRequest struct {
	RunType     string         `json:"run_type"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Metrics     map[string]any `json:"metrics"`
	Findings    []Finding      `json:"findings"`
	Whitelist   Whitelist      `json:"-"`
}

// Finding is one deterministic observation included in the payload
type Finding struct {
	ID       string           `json:"id"`
	Kind     string           `json:"kind"`
	Severity string           `json:"severity"`
	Title    string           `json:"title"`
	Detail   string           `json:"detail,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

// Whitelist is the exact id universe the model may reference. Anything
// outside it is silently dropped from the sanitized result.
type Whitelist struct {
	JournalEntryIDs []string
	DocumentIDs     []string
	AccountCodes    []string
	TransactionIDs  []string
}

// ReviewAdvice is the validated, whitelist-filtered advisor output
type ReviewAdvice struct {
	Summary         string           `json:"summary" validate:"required"`
	RiskNarrative   string           `json:"risk_narrative"`
	Recommendations []Recommendation `json:"recommendations" validate:"dive"`
	Confidence      float64          `json:"confidence" validate:"gte=0,lte=1"`
}

// Recommendation is one advisor suggestion with its cited ids
type Recommendation struct {
	Title           string   `json:"title" validate:"required"`
	Detail          string   `json:"detail"`
	Priority        string   `json:"priority" validate:"required,oneof=low medium high"`
	JournalEntryIDs []string `json:"journal_entry_ids,omitempty"`
	DocumentIDs     []string `json:"document_ids,omitempty"`
	AccountCodes    []string `json:"account_codes,omitempty"`
	TransactionIDs  []string `json:"transaction_ids,omitempty"`
}

// CriticInput describes the posting under the high-risk check
type CriticInput struct {
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	DebitAccount     string          `json:"debit_account"`
	CreditAccount    string          `json:"credit_account"`
	Memo             string          `json:"memo"`
	Source           string          `json:"source"`
	IsBulkAdjustment bool            `json:"is_bulk_adjustment"`
}

// CriticResult is the advisory verdict; it never blocks posting
type CriticResult struct {
	Verdict   string   `json:"verdict"`
	Reasons   []string `json:"reasons"`
	CalledLLM bool     `json:"called_llm"`
}

// StoryRequest carries the tenant state the narrative is built from
type StoryRequest struct {
	Radar    map[string]float64 `json:"radar"`
	Coverage map[string]float64 `json:"coverage"`
	Issues   []Finding          `json:"issues"`
}

// StorySection is one surface-linked block of the narrative
type StorySection struct {
	Title   string `json:"title" validate:"required"`
	Body    string `json:"body"`
	Surface string `json:"surface" validate:"omitempty,oneof=bank invoices receipts books"`
}

// StoryNarrative is the validated story payload
type StoryNarrative struct {
	Headline string         `json:"headline" validate:"required"`
	Body     string         `json:"body" validate:"required"`
	Sections []StorySection `json:"sections" validate:"dive"`
}

// Disabled is the no-op advisor used when no API key is configured.
// Every call reports unavailable; the critic always short-circuits.
type Disabled struct{}

// NewDisabled creates the no-op advisor
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Review always reports the advisor as unavailable
func (d *Disabled) Review(ctx context.Context, req ReviewRequest) (*ReviewAdvice, error) {
	return nil, nil
}

// Critic always short-circuits to ok
func (d *Disabled) Critic(ctx context.Context, input CriticInput) CriticResult {
	return CriticResult{Verdict: VerdictOK, Reasons: []string{}, CalledLLM: false}
}

// Story always reports the advisor as unavailable
func (d *Disabled) Story(ctx context.Context, req StoryRequest) (*StoryNarrative, error) {
	return nil, nil
}

// Model returns the placeholder model name
func (d *Disabled) Model() string {
	return "disabled"
}

// Ensure Disabled implements Advisor
var _ Advisor = (*Disabled)(nil)
