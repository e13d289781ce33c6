package transaction

import (
	"time"

	"github.com/google/uuid"
)

// Type defines the direction and origin of a ledger entry
type Type string

const (
	TypeDeposit     Type = "deposit"
	TypeCredit      Type = "credit"
	TypeDebit       Type = "debit"
	TypeTransferIn  Type = "transfer_in"
	TypeTransferOut Type = "transfer_out"
)

// IsCredit reports whether the type increases the account balance.
func (t Type) IsCredit() bool {
	return t == TypeDeposit || t == TypeCredit || t == TypeTransferIn
}

// Valid reports whether t is one of the known transaction types.
func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeCredit, TypeDebit, TypeTransferIn, TypeTransferOut:
		return true
	}
	return false
}

// Status defines transaction processing states
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Transaction is one append-only ledger entry. It is created exactly once,
// inside the same atomic unit as the balance mutation it documents, and is
// never updated afterwards except for status transitions. BalanceAfter
// snapshots the account balance immediately after the mutation and must
// match a recomputation from the account's completed history.
type Transaction struct {
	ID                 uuid.UUID         `json:"id"`
	AccountID          uuid.UUID         `json:"account_id"`
	Type               Type              `json:"type"`
	Status             Status            `json:"status"`
	Amount             int64             `json:"amount"` // Minor units, always a positive magnitude
	Currency           string            `json:"currency"`
	BalanceAfter       int64             `json:"balance_after"`
	SenderAccountID    *uuid.UUID        `json:"sender_account_id,omitempty"`
	RecipientAccountID *uuid.UUID        `json:"recipient_account_id,omitempty"`
	DistributionID     *uuid.UUID        `json:"distribution_id,omitempty"`
	Reference          string            `json:"reference,omitempty"` // Caller-supplied idempotency key, unique when set
	Description        string            `json:"description,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	CorrelationID      string            `json:"correlation_id,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}
