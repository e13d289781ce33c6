package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (*Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Account, error)

	// ApplyDelta atomically adds signed delta to the account balance and
	// returns the resulting balance. It is a single conditional update:
	// it fails with ErrInsufficientFunds if the result would be negative
	// and with ErrAccountFrozen if the account is frozen or inactive.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) (int64, error)

	// LockForUpdate acquires a row lock on the account; used to serialize
	// multi-account mutations per owner via the main account row.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries a nil id.
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrDuplicateAccountNumber indicates account-number uniqueness violation
type ErrDuplicateAccountNumber struct {
	AccountNumber string
}

func (e ErrDuplicateAccountNumber) Error() string {
	return "account number already exists: " + e.AccountNumber
}
