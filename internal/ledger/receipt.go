package ledger

import (
	"time"

	"github.com/google/uuid"
)

// ReceiptLeg is one account's share of a distribution. TransactionID is nil
// for categories whose rounded share was zero: no ledger entry is written
// for them, but the receipt still accounts for the category.
type ReceiptLeg struct {
	Category      string     `json:"category,omitempty"`
	AccountID     uuid.UUID  `json:"account_id"`
	Amount        int64      `json:"amount"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
}

// Receipt documents one deposit distribution: the total, the reserve share
// (with any rounding residual folded in), and every category leg in policy
// order. Replaying a deposit with the same reference yields this same
// receipt rebuilt from the stored rows.
type Receipt struct {
	DistributionID uuid.UUID    `json:"distribution_id"`
	OwnerID        uuid.UUID    `json:"owner_id"`
	Reference      string       `json:"reference,omitempty"`
	Amount         int64        `json:"amount"`
	Currency       string       `json:"currency"`
	Reserve        ReceiptLeg   `json:"reserve"`
	Residual       int64        `json:"residual"`
	Legs           []ReceiptLeg `json:"legs"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Total returns the sum of the reserve and all legs, always equal to Amount.
func (r *Receipt) Total() int64 {
	total := r.Reserve.Amount
	for _, leg := range r.Legs {
		total += leg.Amount
	}
	return total
}
