package review

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/review"
)

// DocumentHints are the user-supplied fields for one uploaded document.
// They fill whatever extraction could not determine.
type DocumentHints struct {
	Vendor        *string          `json:"vendor,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	DocumentDate  *time.Time       `json:"document_date,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	Category      *string          `json:"category,omitempty"`
}

// DocumentInput is one document submitted to the receipts or invoices
// pipeline. StorageKey points at the uploaded object; without it the
// audit runs on hints and the file name alone.
type DocumentInput struct {
	FileName   string        `json:"file_name" binding:"required"`
	StorageKey *string       `json:"storage_key,omitempty"`
	Hints      DocumentHints `json:"hints"`
}

// RunDocumentsRequest starts a receipts or invoices review
type RunDocumentsRequest struct {
	PeriodStart time.Time       `json:"period_start" binding:"required"`
	PeriodEnd   time.Time       `json:"period_end" binding:"required"`
	Documents   []DocumentInput `json:"documents" binding:"required,min=1,dive"`
}

// BooksReviewRequest starts a books review over a period
type BooksReviewRequest struct {
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

// BankReviewRequest starts a bank review over a period, optionally
// narrowed to one bank account
type BankReviewRequest struct {
	PeriodStart   time.Time  `json:"period_start" binding:"required"`
	PeriodEnd     time.Time  `json:"period_end" binding:"required"`
	BankAccountID *uuid.UUID `json:"bank_account_id,omitempty"`
}

// ListRunsQuery narrows the run listing
type ListRunsQuery struct {
	RunType string `form:"run_type"`
	Status  string `form:"status"`
	Limit   int    `form:"limit"`
}

// RunView is one review run in responses
type RunView struct {
	ID               uuid.UUID        `json:"id"`
	RunType          string           `json:"run_type"`
	Status           string           `json:"status"`
	PeriodStart      time.Time        `json:"period_start"`
	PeriodEnd        time.Time        `json:"period_end"`
	Metrics          review.Metrics   `json:"metrics"`
	OverallRiskScore *decimal.Decimal `json:"overall_risk_score,omitempty"`
	RiskLevel        *string          `json:"risk_level,omitempty"`
	AdvisorSummary   *string          `json:"advisor_summary,omitempty"`
	AdvisorPayload   review.Metrics   `json:"advisor_payload,omitempty"`
	AdvisorModel     *string          `json:"advisor_model,omitempty"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	FailureReason    *string          `json:"failure_reason,omitempty"`
}

// DocumentReviewView is one audited document in responses
type DocumentReviewView struct {
	ID              uuid.UUID               `json:"id"`
	FileName        string                  `json:"file_name"`
	StorageKey      *string                 `json:"storage_key,omitempty"`
	Extracted       review.ExtractedPayload `json:"extracted"`
	ProposedPosting *review.ProposedPosting `json:"proposed_posting,omitempty"`
	AuditFlags      review.AuditFlags       `json:"audit_flags"`
	AuditScore      decimal.Decimal         `json:"audit_score"`
	AuditStatus     string                  `json:"audit_status"`
}

// RunResponse is a run with its documents when the pipeline audits
// documents
type RunResponse struct {
	Run       RunView              `json:"run"`
	Documents []DocumentReviewView `json:"documents,omitempty"`
}

// ToRunView converts a run to its response form
func ToRunView(run *review.Run) RunView {
	view := RunView{
		ID:               run.ID,
		RunType:          string(run.RunType),
		Status:           string(run.Status),
		PeriodStart:      run.PeriodStart,
		PeriodEnd:        run.PeriodEnd,
		Metrics:          run.Metrics,
		OverallRiskScore: run.OverallRiskScore,
		AdvisorSummary:   run.AdvisorSummary,
		AdvisorPayload:   run.AdvisorPayload,
		AdvisorModel:     run.AdvisorModel,
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
		FailureReason:    run.FailureReason,
	}
	if run.RiskLevel != nil {
		level := string(*run.RiskLevel)
		view.RiskLevel = &level
	}
	return view
}

// ToDocumentReviewView converts an audited document to its response form
func ToDocumentReviewView(doc *review.DocumentReview) DocumentReviewView {
	return DocumentReviewView{
		ID:              doc.ID,
		FileName:        doc.FileName,
		StorageKey:      doc.StorageKey,
		Extracted:       doc.Extracted,
		ProposedPosting: doc.ProposedPosting,
		AuditFlags:      doc.AuditFlags,
		AuditScore:      doc.AuditScore,
		AuditStatus:     string(doc.AuditStatus),
	}
}
