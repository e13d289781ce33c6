// Package distribution holds the persisted record of one deposit split:
// the atomic act of dividing an incoming deposit between the owner's
// emergency reserve and the category sub-accounts. The stored row is what
// makes retried deposits with the same reference return the identical
// receipt instead of double-crediting.
package distribution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Distribution records one completed deposit split.
type Distribution struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Reference     string    `json:"reference,omitempty"` // Caller idempotency key, unique when set
	Amount        int64     `json:"amount"`              // Total deposited, minor units
	ReserveAmount int64     `json:"reserve_amount"`      // Portion kept on the main account
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository manages distribution persistence
type Repository interface {
	// Create stores the record; a duplicate reference fails with
	// ErrDuplicateReference via a store-level uniqueness constraint.
	Create(ctx context.Context, d *Distribution) error

	// GetByReference returns nil, nil when no distribution carries the reference.
	GetByReference(ctx context.Context, reference string) (*Distribution, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Distribution, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateReference indicates a deposit replay: a distribution with
// this reference was already recorded.
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "distribution reference already exists: " + e.Reference
}

// Is matches any ErrDuplicateReference when the target carries no reference.
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	return t.Reference == "" || e.Reference == t.Reference
}

// ErrDistributionNotFound indicates missing distribution
type ErrDistributionNotFound struct {
	DistributionID uuid.UUID
}

func (e ErrDistributionNotFound) Error() string {
	return "distribution not found: " + e.DistributionID.String()
}
