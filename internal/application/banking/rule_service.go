package banking

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
)

// BankRuleService manages the substring rules that pin recurring statement
// lines to a ledger account
type BankRuleService struct {
	ruleRepo    banking.BankRuleRepository
	accountRepo ledger.AccountRepository
	logger      *zap.Logger
}

// NewBankRuleService creates a new BankRuleService
func NewBankRuleService(ruleRepo banking.BankRuleRepository, accountRepo ledger.AccountRepository, logger *zap.Logger) *BankRuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankRuleService{
		ruleRepo:    ruleRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// ListRules returns the tenant's active rules in priority order
func (s *BankRuleService) ListRules(ctx context.Context, tenantID uuid.UUID) ([]RuleResponse, error) {
	rules, err := s.ruleRepo.FindActiveForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	responses := make([]RuleResponse, len(rules))
	for i := range rules {
		responses[i] = ToRuleResponse(&rules[i])
	}
	return responses, nil
}

// CreateRule adds a rule after checking its target account exists
func (s *BankRuleService) CreateRule(ctx context.Context, tenantID uuid.UUID, req CreateRuleRequest) (*RuleResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, req.AccountID)
	if err != nil {
		return nil, err
	}

	rule, err := banking.NewBankRule(tenantID, req.Name, req.Pattern, account.ID, req.Priority)
	if err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("bank rule created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("rule_id", rule.ID.String()),
		zap.String("pattern", rule.Pattern))

	resp := ToRuleResponse(rule)
	return &resp, nil
}
