package banking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/domain/banking"
	"github.com/ledgerline/backend/internal/domain/ledger"
	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// BankAccountService manages the bank accounts a tenant reconciles against
type BankAccountService struct {
	bankAccountRepo banking.BankAccountRepository
	accountRepo     ledger.AccountRepository
	logger          *zap.Logger
}

// NewBankAccountService creates a new BankAccountService
func NewBankAccountService(
	bankAccountRepo banking.BankAccountRepository,
	accountRepo ledger.AccountRepository,
	logger *zap.Logger,
) *BankAccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankAccountService{
		bankAccountRepo: bankAccountRepo,
		accountRepo:     accountRepo,
		logger:          logger,
	}
}

// ListAccounts returns every bank account of the tenant
func (s *BankAccountService) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]BankAccountResponse, error) {
	accounts, err := s.bankAccountRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	responses := make([]BankAccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = ToBankAccountResponse(&accounts[i])
	}
	return responses, nil
}

// CreateAccount registers a bank account, optionally linked to a ledger
// account right away
func (s *BankAccountService) CreateAccount(ctx context.Context, tenantID uuid.UUID, req CreateBankAccountRequest) (*BankAccountResponse, error) {
	if req.Currency != "" && !valueobject.IsSupportedCurrency(valueobject.Currency(req.Currency)) {
		return nil, shared.NewValidationError(fmt.Sprintf("unsupported currency: %s", req.Currency))
	}

	account, err := banking.NewBankAccount(tenantID, req.Name, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	if req.LedgerAccountID != nil {
		if err := s.linkAccount(ctx, tenantID, account, *req.LedgerAccountID); err != nil {
			return nil, err
		}
	}
	if err := s.bankAccountRepo.Save(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("bank account created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("bank_account_id", account.ID.String()))

	resp := ToBankAccountResponse(account)
	return &resp, nil
}

// LinkLedgerAccount points an existing bank account at the ledger account
// its statement lines settle against
func (s *BankAccountService) LinkLedgerAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID, req LinkLedgerAccountRequest) (*BankAccountResponse, error) {
	account, err := s.bankAccountRepo.FindByIDForTenant(ctx, tenantID, bankAccountID)
	if err != nil {
		return nil, err
	}
	if err := s.linkAccount(ctx, tenantID, account, req.LedgerAccountID); err != nil {
		return nil, err
	}
	if err := s.bankAccountRepo.Save(ctx, account); err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(account)
	return &resp, nil
}

// linkAccount validates the ledger side of a link before applying it. Only
// asset accounts can back a bank account.
func (s *BankAccountService) linkAccount(ctx context.Context, tenantID uuid.UUID, account *banking.BankAccount, ledgerAccountID uuid.UUID) error {
	ledgerAccount, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, ledgerAccountID)
	if err != nil {
		return err
	}
	if ledgerAccount.Type != ledger.AccountTypeAsset {
		return shared.NewValidationError(fmt.Sprintf(
			"ledger account %s is %s, bank accounts must link to an asset account",
			ledgerAccount.Code, ledgerAccount.Type))
	}
	return account.LinkLedgerAccount(ledgerAccount.ID)
}
