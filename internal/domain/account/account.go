package account

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrAccountFrozen         = errors.New("account does not accept mutations")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrEmptyCategory         = errors.New("category name cannot be empty")
)

// Status represents the lifecycle state of an account. Frozen and inactive
// accounts reject every balance mutation; accounts are never physically
// deleted, only marked inactive.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusFrozen   Status = "frozen"
)

// Kind distinguishes the owner's main (emergency reserve) account from its
// category sub-accounts. The zero value is the main kind; category kinds
// carry the category name. Using a tagged type instead of a free-text column
// keeps "main vs category" decisions out of string comparisons.
type Kind struct {
	category string
}

// KindMain is the kind of the single reserve account each owner has.
var KindMain = Kind{}

// KindCategory returns the kind for a category sub-account.
func KindCategory(name string) (Kind, error) {
	if name == "" {
		return Kind{}, ErrEmptyCategory
	}
	return Kind{category: name}, nil
}

// IsMain reports whether the kind denotes the main account.
func (k Kind) IsMain() bool { return k.category == "" }

// CategoryName returns the category for category kinds, "" for main.
func (k Kind) CategoryName() string { return k.category }

func (k Kind) String() string {
	if k.IsMain() {
		return "main"
	}
	return k.category
}

// Account represents one node of an owner's account hierarchy: either the
// main emergency-reserve account or one category sub-account linked to it.
// Balance is stored in minor units. For the main account it holds the
// reserve portion only; the user-facing aggregate is computed on read.
type Account struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	CaregiverID   *uuid.UUID `json:"caregiver_id,omitempty"`
	Kind          Kind       `json:"-"`
	ParentID      *uuid.UUID `json:"parent_account_id,omitempty"`
	AccountNumber string     `json:"account_number"`
	Balance       int64      `json:"balance"`
	Currency      string     `json:"currency"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewMain creates the owner's main account with a zero reserve balance.
func NewMain(ownerID uuid.UUID, caregiverID *uuid.UUID, currency string) (*Account, error) {
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	now := time.Now()
	return &Account{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		CaregiverID:   caregiverID,
		Kind:          KindMain,
		AccountNumber: NewAccountNumber(),
		Balance:       0,
		Currency:      currency,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewCategory creates a category sub-account linked to the owner's main account.
func NewCategory(ownerID uuid.UUID, caregiverID *uuid.UUID, parentID uuid.UUID, category string, currency string) (*Account, error) {
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	kind, err := KindCategory(category)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Account{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		CaregiverID:   caregiverID,
		Kind:          kind,
		ParentID:      &parentID,
		AccountNumber: NewAccountNumber(),
		Balance:       0,
		Currency:      currency,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsOperational reports whether the account accepts balance mutations.
func (a *Account) IsOperational() bool {
	return a.Status == StatusActive
}

// CanDebit checks if the account holds at least the given amount.
func (a *Account) CanDebit(amount int64) bool {
	return a.Balance >= amount
}

// NewAccountNumber generates a human-facing 12-digit account number.
// Uniqueness is enforced by the store; collisions surface as constraint errors.
func NewAccountNumber() string {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	n := binary.BigEndian.Uint64(buf[:]) % 10_000_000_000
	return fmt.Sprintf("52%010d", n)
}
