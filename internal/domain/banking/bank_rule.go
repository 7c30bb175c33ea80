package banking

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/shared"
)

// BankRule maps a merchant pattern to a category account. Rules
// short-circuit the matching engine with a RULE-typed suggestion and feed
// the add-as-new offset account.
type BankRule struct {
	shared.TenantAggregateRoot
	Name      string    `json:"name"`
	Pattern   string    `json:"pattern"`
	AccountID uuid.UUID `json:"account_id"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"active"`

	normalizedPattern string
}

// NewBankRule creates a rule after validating the pattern and target
func NewBankRule(tenantID uuid.UUID, name, pattern string, accountID uuid.UUID, priority int) (*BankRule, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, shared.NewValidationError("bank rule pattern is required")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewValidationError("bank rule account is required")
	}
	if name == "" {
		name = pattern
	}
	return &BankRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Pattern:             pattern,
		AccountID:           accountID,
		Priority:            priority,
		Active:              true,
	}, nil
}

// Matches reports whether the rule's pattern occurs in the description.
// Comparison happens on normalized text, so case and accents don't matter.
func (r *BankRule) Matches(description string) bool {
	if !r.Active {
		return false
	}
	if r.normalizedPattern == "" {
		r.normalizedPattern = NormalizeDescription(r.Pattern)
	}
	return r.normalizedPattern != "" &&
		strings.Contains(NormalizeDescription(description), r.normalizedPattern)
}
