package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows history queries. Zero values mean "no constraint";
// Limit defaults to a store-side cap when unset.
type Filter struct {
	Since *time.Time
	Type  Type
	Limit int
}

// Repository manages append-only transaction persistence
type Repository interface {
	// Record appends an entry. If the entry carries a reference that
	// already exists, the store rejects it with ErrDuplicateReference;
	// uniqueness is enforced by a constraint, not an application check.
	Record(ctx context.Context, txn *Transaction) error

	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetByReference returns nil, nil when no entry carries the reference.
	GetByReference(ctx context.Context, reference string) (*Transaction, error)

	// ListByAccount returns entries newest-first; each call restarts the
	// query, it is not a live stream.
	ListByAccount(ctx context.Context, accountID uuid.UUID, filter Filter) ([]*Transaction, error)

	ListByDistribution(ctx context.Context, distributionID uuid.UUID) ([]*Transaction, error)

	// RecomputeBalance sums completed entries for audit verification of
	// the stored balance and the BalanceAfter snapshots.
	RecomputeBalance(ctx context.Context, accountID uuid.UUID) (int64, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is matches any ErrTransactionNotFound when the target carries a nil id.
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}

// ErrDuplicateReference indicates the idempotency key was already used.
// Callers treat it as a replay, not a hard failure: the prior result is
// looked up and returned.
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "transaction reference already exists: " + e.Reference
}

// Is matches any ErrDuplicateReference when the target carries no reference.
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	return t.Reference == "" || e.Reference == t.Reference
}
