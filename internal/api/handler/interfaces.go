package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/famvault/custodial-ledger/internal/domain/account"
	"github.com/famvault/custodial-ledger/internal/domain/transaction"
	"github.com/famvault/custodial-ledger/internal/ledger"
)

// AccountService manages account sets and lifecycle state.
// *ledger.Engine satisfies it.
type AccountService interface {
	CreateAccountSet(ctx context.Context, ownerID uuid.UUID, caregiverID *uuid.UUID) (*account.Set, error)
	Accounts(ctx context.Context, ownerID uuid.UUID) (*account.Set, error)
	SetAccountStatus(ctx context.Context, accountID uuid.UUID, status account.Status) (*account.Account, error)
	History(ctx context.Context, accountID uuid.UUID, filter transaction.Filter) ([]*transaction.Transaction, error)
}

// LedgerService performs balance mutations. *ledger.Engine satisfies it.
type LedgerService interface {
	Distribute(ctx context.Context, req ledger.DepositRequest) (*ledger.Receipt, bool, error)
	Spend(ctx context.Context, req ledger.SpendRequest) (*transaction.Transaction, bool, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (debit, credit *transaction.Transaction, err error)
}
