package review

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// AuditSeverity grades a single audit flag
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditStatus summarizes a document's audit outcome. Error is reserved
// for blocking flags; anything else flagged is a warning.
type AuditStatus string

const (
	AuditStatusOK      AuditStatus = "ok"
	AuditStatusWarning AuditStatus = "warning"
	AuditStatusError   AuditStatus = "error"
)

// Audit flag codes
const (
	FlagMissingAmount        = "missing_amount"
	FlagMissingVendor        = "missing_vendor"
	FlagMissingInvoiceNumber = "missing_invoice_number"
	FlagLargeAmount          = "large_amount"
	FlagUnusualAmount        = "unusual_amount"
	FlagCurrencyMismatch     = "currency_mismatch"
	FlagFutureDate           = "future_date"
	FlagInvalidDate          = "invalid_date"
	FlagOverdue              = "overdue"
	FlagVendorNameSuspect    = "vendor_name_suspect"
	FlagGenericCategory      = "generic_category"
	FlagExtractionFallback   = "extraction_fallback"
)

// AuditFlag is one triggered audit rule with its risk contribution.
// Blocking flags force the error status; reflective flags come from the
// companion layer and mark the document for another look.
type AuditFlag struct {
	Code       string        `json:"code"`
	Severity   AuditSeverity `json:"severity"`
	Message    string        `json:"message"`
	Delta      int           `json:"delta"`
	Blocking   bool          `json:"blocking,omitempty"`
	Reflective bool          `json:"reflective,omitempty"`
}

// AuditFlags is the JSONB flag list on a document review
type AuditFlags []AuditFlag

// Value implements driver.Valuer for JSONB storage
func (f AuditFlags) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB retrieval
func (f *AuditFlags) Scan(value interface{}) error {
	if value == nil {
		*f = AuditFlags{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan AuditFlags: unsupported type")
	}
	if len(bytes) == 0 {
		*f = AuditFlags{}
		return nil
	}
	return json.Unmarshal(bytes, f)
}

// HasBlocking reports whether any flag blocks the document
func (f AuditFlags) HasBlocking() bool {
	for _, flag := range f {
		if flag.Blocking {
			return true
		}
	}
	return false
}

// CountBySeverity returns how many flags carry each severity
func (f AuditFlags) CountBySeverity() (high, medium, low int) {
	for _, flag := range f {
		switch flag.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		case SeverityLow:
			low++
		}
	}
	return high, medium, low
}

// ExtractedDocument is what OCR or the filename fallback produced for
// one receipt or invoice. Nil fields were not extracted.
type ExtractedDocument struct {
	Vendor        *string          `json:"vendor,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	DocumentDate  *time.Time       `json:"document_date,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	Category      *string          `json:"category,omitempty"`
	FromFallback  bool             `json:"from_fallback,omitempty"`
}

// DocumentAuditor runs the deterministic audit rules for receipt and
// invoice documents.
type DocumentAuditor struct {
	TenantCurrency   string
	UnusualThreshold decimal.Decimal
	LargeThreshold   decimal.Decimal
	// RequireInvoiceNumber is set for the invoices pipeline; receipts
	// rarely carry one.
	RequireInvoiceNumber bool
	CompanionEnabled     bool
	Now                  time.Time
}

// NewDocumentAuditor returns an auditor with the default thresholds
func NewDocumentAuditor(tenantCurrency string, runType RunType, companionEnabled bool) *DocumentAuditor {
	return &DocumentAuditor{
		TenantCurrency:       tenantCurrency,
		UnusualThreshold:     decimal.NewFromInt(5000),
		LargeThreshold:       decimal.NewFromInt(10000),
		RequireInvoiceNumber: runType == RunTypeInvoices,
		CompanionEnabled:     companionEnabled,
		Now:                  time.Now(),
	}
}

var genericCategories = map[string]struct{}{
	"other": {}, "misc": {}, "miscellaneous": {}, "general": {}, "uncategorized": {},
}

// Audit applies every rule to one extracted document and returns the
// triggered flags with the clamped risk score.
func (a *DocumentAuditor) Audit(doc ExtractedDocument) (AuditFlags, decimal.Decimal, AuditStatus) {
	flags := AuditFlags{}

	if doc.Amount == nil || doc.Amount.IsZero() {
		flags = append(flags, AuditFlag{
			Code: FlagMissingAmount, Severity: SeverityHigh, Blocking: true, Delta: 50,
			Message: "no amount could be determined for this document",
		})
	}
	if doc.Vendor == nil || strings.TrimSpace(*doc.Vendor) == "" {
		flags = append(flags, AuditFlag{
			Code: FlagMissingVendor, Severity: SeverityHigh, Blocking: true, Delta: 35,
			Message: "no vendor could be determined for this document",
		})
	}
	if a.RequireInvoiceNumber && (doc.InvoiceNumber == nil || strings.TrimSpace(*doc.InvoiceNumber) == "") {
		flags = append(flags, AuditFlag{
			Code: FlagMissingInvoiceNumber, Severity: SeverityHigh, Blocking: true, Delta: 30,
			Message: "invoice number is missing",
		})
	}

	if doc.Amount != nil {
		amount := doc.Amount.Abs()
		switch {
		case amount.GreaterThanOrEqual(a.LargeThreshold):
			flags = append(flags, AuditFlag{
				Code: FlagLargeAmount, Severity: SeverityHigh, Delta: 60,
				Message: "amount " + amount.StringFixed(2) + " is unusually large",
			})
		case amount.GreaterThanOrEqual(a.UnusualThreshold):
			flags = append(flags, AuditFlag{
				Code: FlagUnusualAmount, Severity: SeverityMedium, Delta: 25,
				Message: "amount " + amount.StringFixed(2) + " is above the usual range",
			})
		}
	}

	if doc.Currency != "" && a.TenantCurrency != "" && !strings.EqualFold(doc.Currency, a.TenantCurrency) {
		flags = append(flags, AuditFlag{
			Code: FlagCurrencyMismatch, Severity: SeverityMedium, Delta: 18,
			Message: "document currency " + doc.Currency + " differs from the business currency " + a.TenantCurrency,
		})
	}

	flags = append(flags, a.dateFlags(doc)...)

	if a.CompanionEnabled {
		flags = append(flags, a.reflectiveFlags(doc)...)
	}

	if doc.FromFallback {
		flags = append(flags, AuditFlag{
			Code: FlagExtractionFallback, Severity: SeverityLow, Delta: 8,
			Message: "extraction unavailable, details inferred from the filename",
		})
	}

	score := clampScore(flags)
	return flags, score, statusFor(flags)
}

func (a *DocumentAuditor) dateFlags(doc ExtractedDocument) AuditFlags {
	var flags AuditFlags
	now := a.Now
	if now.IsZero() {
		now = time.Now()
	}

	if doc.DocumentDate == nil {
		flags = append(flags, AuditFlag{
			Code: FlagInvalidDate, Severity: SeverityMedium, Delta: 12,
			Message: "document date is missing or unreadable",
		})
		return flags
	}
	if doc.DocumentDate.After(now.AddDate(0, 0, 1)) {
		flags = append(flags, AuditFlag{
			Code: FlagFutureDate, Severity: SeverityMedium, Delta: 15,
			Message: "document is dated in the future",
		})
	}
	if doc.DueDate != nil && doc.DueDate.Before(now) {
		flags = append(flags, AuditFlag{
			Code: FlagOverdue, Severity: SeverityMedium, Delta: 10,
			Message: "document is past its due date",
		})
	}
	return flags
}

// reflectiveFlags are the companion's second-look rules: softer signals
// that queue the document for another review rather than block it.
func (a *DocumentAuditor) reflectiveFlags(doc ExtractedDocument) AuditFlags {
	var flags AuditFlags

	if doc.Vendor != nil && suspectVendorName(*doc.Vendor) {
		flags = append(flags, AuditFlag{
			Code: FlagVendorNameSuspect, Severity: SeverityLow, Delta: 5, Reflective: true,
			Message: "vendor name looks like a reference code rather than a business name",
		})
	}
	if doc.Category != nil {
		if _, generic := genericCategories[strings.ToLower(strings.TrimSpace(*doc.Category))]; generic {
			flags = append(flags, AuditFlag{
				Code: FlagGenericCategory, Severity: SeverityMedium, Delta: 12, Reflective: true,
				Message: "category " + *doc.Category + " is too generic to post confidently",
			})
		}
	}
	return flags
}

// suspectVendorName reports vendor strings dominated by digits or
// reference punctuation.
func suspectVendorName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	letters, digits := 0, 0
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return digits > letters
}

func clampScore(flags AuditFlags) decimal.Decimal {
	total := 0
	for _, f := range flags {
		total += f.Delta
	}
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return decimal.NewFromInt(int64(total)).Round(2)
}

func statusFor(flags AuditFlags) AuditStatus {
	if flags.HasBlocking() {
		return AuditStatusError
	}
	if len(flags) > 0 {
		return AuditStatusWarning
	}
	return AuditStatusOK
}
