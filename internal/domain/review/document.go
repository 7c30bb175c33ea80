package review

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// ProposedPosting is the draft journal entry a document review suggests.
// It is a suggestion only; posting happens through the allocation and
// journal paths.
type ProposedPosting struct {
	DebitAccountCode  string          `json:"debit_account_code"`
	CreditAccountCode string          `json:"credit_account_code"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
}

// Value implements driver.Valuer for JSONB storage
func (p ProposedPosting) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB retrieval
func (p *ProposedPosting) Scan(value interface{}) error {
	if value == nil {
		*p = ProposedPosting{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan ProposedPosting: unsupported type")
	}
	if len(bytes) == 0 {
		*p = ProposedPosting{}
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// ExtractedPayload stores the extraction result as JSONB
type ExtractedPayload ExtractedDocument

// Value implements driver.Valuer for JSONB storage
func (e ExtractedPayload) Value() (driver.Value, error) {
	return json.Marshal(e)
}

// Scan implements sql.Scanner for JSONB retrieval
func (e *ExtractedPayload) Scan(value interface{}) error {
	if value == nil {
		*e = ExtractedPayload{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan ExtractedPayload: unsupported type")
	}
	if len(bytes) == 0 {
		*e = ExtractedPayload{}
		return nil
	}
	return json.Unmarshal(bytes, e)
}

// DocumentReview is one audited receipt or invoice inside a run
type DocumentReview struct {
	shared.TenantAggregateRoot
	RunID           uuid.UUID        `json:"run_id"`
	FileName        string           `json:"file_name"`
	StorageKey      *string          `json:"storage_key,omitempty"`
	Extracted       ExtractedPayload `json:"extracted"`
	ProposedPosting *ProposedPosting `json:"proposed_posting,omitempty"`
	AuditFlags      AuditFlags       `json:"audit_flags"`
	AuditScore      decimal.Decimal  `json:"audit_score"`
	AuditStatus     AuditStatus      `json:"audit_status"`
}

// NewDocumentReview records one audited document under a run
func NewDocumentReview(tenantID, runID uuid.UUID, fileName string, extracted ExtractedDocument, flags AuditFlags, score decimal.Decimal, status AuditStatus) (*DocumentReview, error) {
	if runID == uuid.Nil {
		return nil, shared.NewValidationError("review run is required")
	}
	if fileName == "" {
		return nil, shared.NewValidationError("document file name is required")
	}
	if flags == nil {
		flags = AuditFlags{}
	}
	return &DocumentReview{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		RunID:               runID,
		FileName:            fileName,
		Extracted:           ExtractedPayload(extracted),
		AuditFlags:          flags,
		AuditScore:          score,
		AuditStatus:         status,
	}, nil
}

// SetStorageKey links the stored document object
func (d *DocumentReview) SetStorageKey(key string) {
	if key != "" {
		d.StorageKey = &key
	}
}

// SetProposedPosting attaches the draft entry derived from extraction
func (d *DocumentReview) SetProposedPosting(p ProposedPosting) {
	d.ProposedPosting = &p
}
