// Package statement defines the read-side statement archive: a denormalized
// copy of completed ledger entries kept in a document store for cheap
// statement rendering. The archive is eventually consistent; the relational
// ledger remains the source of truth.
package statement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one archived statement line, denormalized from a ledger event.
type Entry struct {
	TransactionID      uuid.UUID  `json:"transaction_id" bson:"transaction_id"`
	AccountID          uuid.UUID  `json:"account_id" bson:"account_id"`
	OwnerID            uuid.UUID  `json:"owner_id" bson:"owner_id"`
	DistributionID     *uuid.UUID `json:"distribution_id,omitempty" bson:"distribution_id,omitempty"`
	Type               string     `json:"type" bson:"type"`
	Status             string     `json:"status" bson:"status"`
	Amount             int64      `json:"amount" bson:"amount"`
	Currency           string     `json:"currency" bson:"currency"`
	BalanceAfter       int64      `json:"balance_after" bson:"balance_after"`
	SenderAccountID    *uuid.UUID `json:"sender_account_id,omitempty" bson:"sender_account_id,omitempty"`
	RecipientAccountID *uuid.UUID `json:"recipient_account_id,omitempty" bson:"recipient_account_id,omitempty"`
	Reference          string     `json:"reference,omitempty" bson:"reference,omitempty"`
	Description        string     `json:"description,omitempty" bson:"description,omitempty"`
	CorrelationID      string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt         time.Time  `json:"occurred_at" bson:"occurred_at"`
	ArchivedAt         time.Time  `json:"archived_at" bson:"archived_at"`
}

// Repository manages statement archive persistence
type Repository interface {
	// Upsert writes the entry keyed by transaction id. Events may be
	// re-delivered, so a second write with the same id replaces rather
	// than duplicates.
	Upsert(ctx context.Context, entry *Entry) error

	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Entry, error)

	// ListByAccount returns entries newest-first with offset pagination.
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)

	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// ErrEntryNotFound indicates missing statement entry
type ErrEntryNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "statement entry not found: " + e.TransactionID.String()
}

// Is matches any ErrEntryNotFound when the target carries a nil id.
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}
