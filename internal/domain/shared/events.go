// Package shared holds types crossing component boundaries: the ledger
// event shape flowing from the outbox through Kafka into the statement
// archive, and the outbox publishing states.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEvent mirrors one completed ledger transaction for the read-side
// statement archive. Postgres stays authoritative; events are published
// after commit and may be re-delivered, so consumers must apply them
// idempotently by transaction id.
type LedgerEvent struct {
	TransactionID      uuid.UUID  `json:"transaction_id" bson:"transaction_id"`
	AccountID          uuid.UUID  `json:"account_id" bson:"account_id"`
	OwnerID            uuid.UUID  `json:"owner_id" bson:"owner_id"`
	DistributionID     *uuid.UUID `json:"distribution_id,omitempty" bson:"distribution_id,omitempty"`
	Type               string     `json:"type" bson:"type"`
	Status             string     `json:"status" bson:"status"`
	Amount             int64      `json:"amount" bson:"amount"` // Minor units
	Currency           string     `json:"currency" bson:"currency"`
	BalanceAfter       int64      `json:"balance_after" bson:"balance_after"`
	SenderAccountID    *uuid.UUID `json:"sender_account_id,omitempty" bson:"sender_account_id,omitempty"`
	RecipientAccountID *uuid.UUID `json:"recipient_account_id,omitempty" bson:"recipient_account_id,omitempty"`
	Reference          string     `json:"reference,omitempty" bson:"reference,omitempty"`
	Description        string     `json:"description,omitempty" bson:"description,omitempty"`
	CorrelationID      string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt         time.Time  `json:"occurred_at" bson:"occurred_at"`
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
