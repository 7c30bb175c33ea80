package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/ledger"
)

// DefaultAccountsService materializes the chart template per tenant and
// resolves the role accounts the posting engines depend on.
type DefaultAccountsService struct {
	accountRepo ledger.AccountRepository
}

// NewDefaultAccountsService creates a new DefaultAccountsService
func NewDefaultAccountsService(accountRepo ledger.AccountRepository) *DefaultAccountsService {
	return &DefaultAccountsService{accountRepo: accountRepo}
}

// EnsureDefaults walks the chart template through get-or-create and returns
// the resolved role bundle. Repeated calls reuse the existing accounts.
func (s *DefaultAccountsService) EnsureDefaults(ctx context.Context, tenantID uuid.UUID) (*ledger.DefaultAccounts, error) {
	return ResolveDefaults(ctx, s.accountRepo, tenantID)
}

// EnsureUncategorized returns the tenant's holding account for postings
// without a category, creating it on demand.
func (s *DefaultAccountsService) EnsureUncategorized(ctx context.Context, tenantID uuid.UUID) (*ledger.Account, error) {
	return ResolveUncategorized(ctx, s.accountRepo, tenantID)
}

// ListAccounts returns the tenant's chart, active accounts first
func (s *DefaultAccountsService) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]ledger.Account, error) {
	return s.accountRepo.FindAllForTenant(ctx, tenantID)
}

// ResolveDefaults materializes and resolves the role accounts against the
// given repository. Transactional callers pass their scope-bound repository
// so creation joins the surrounding transaction.
func ResolveDefaults(ctx context.Context, accounts ledger.AccountRepository, tenantID uuid.UUID) (*ledger.DefaultAccounts, error) {
	defaults := &ledger.DefaultAccounts{}
	for _, spec := range ledger.DefaultChart() {
		account, err := accounts.GetOrCreate(ctx, tenantID, spec)
		if err != nil {
			return nil, err
		}
		switch spec.Role {
		case ledger.RoleCash:
			defaults.Cash = account
		case ledger.RoleAccountsReceivable:
			defaults.Receivable = account
		case ledger.RoleAccountsPayable:
			defaults.Payable = account
		case ledger.RoleSalesTaxPayable:
			defaults.SalesTaxPayable = account
		case ledger.RoleTaxRecoverable:
			defaults.TaxRecoverable = account
		case ledger.RoleFallbackIncome:
			defaults.FallbackIncome = account
		case ledger.RoleFallbackExpense:
			defaults.FallbackExpense = account
		}
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	return defaults, nil
}

// ResolveUncategorized materializes the on-demand holding account against
// the given repository.
func ResolveUncategorized(ctx context.Context, accounts ledger.AccountRepository, tenantID uuid.UUID) (*ledger.Account, error) {
	return accounts.GetOrCreate(ctx, tenantID, ledger.UncategorizedSpec())
}
