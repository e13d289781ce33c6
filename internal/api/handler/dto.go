package handler

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/famvault/custodial-ledger/internal/domain/account"
	"github.com/famvault/custodial-ledger/internal/domain/transaction"
	"github.com/famvault/custodial-ledger/internal/ledger"
)

// errAmountPrecision rejects amounts finer than the minor unit.
var errAmountPrecision = errors.New("amount has more precision than the minor unit")

// parseAmount converts a decimal amount string ("1000.00") to minor units.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, errAmountPrecision
	}
	return minor.IntPart(), nil
}

// formatAmount renders minor units as a decimal amount string.
func formatAmount(minor int64) string {
	return decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
}

// CreateAccountSetRequest provisions an owner's account hierarchy
type CreateAccountSetRequest struct {
	CaregiverID string `json:"caregiver_id,omitempty" binding:"omitempty,uuid"`
}

// AccountResponse represents an account in API responses. For the main
// account Balance is the displayed aggregate (reserve plus all category
// balances) and ReserveBalance carries the reserve alone.
type AccountResponse struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	CaregiverID    string  `json:"caregiver_id,omitempty"`
	Kind           string  `json:"kind"`
	Category       string  `json:"category,omitempty"`
	ParentID       string  `json:"parent_account_id,omitempty"`
	AccountNumber  string  `json:"account_number"`
	Balance        string  `json:"balance"`
	ReserveBalance *string `json:"reserve_balance,omitempty"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// AccountSetResponse lists an owner's accounts in policy order
type AccountSetResponse struct {
	OwnerID      string            `json:"owner_id"`
	TotalBalance string            `json:"total_balance"`
	Accounts     []AccountResponse `json:"accounts"`
}

// DepositRequest submits a deposit for distribution
type DepositRequest struct {
	OwnerID     string `json:"owner_id" binding:"required,uuid"`
	Amount      string `json:"amount" binding:"required"`
	Reference   string `json:"reference,omitempty"`
	Description string `json:"description,omitempty"`
}

// ReceiptLegResponse is one share of a distribution receipt
type ReceiptLegResponse struct {
	Category      string `json:"category,omitempty"`
	AccountID     string `json:"account_id"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// ReceiptResponse represents a distribution receipt in API responses
type ReceiptResponse struct {
	DistributionID string               `json:"distribution_id"`
	OwnerID        string               `json:"owner_id"`
	Reference      string               `json:"reference,omitempty"`
	Amount         string               `json:"amount"`
	Currency       string               `json:"currency"`
	Reserve        ReceiptLegResponse   `json:"reserve"`
	Residual       string               `json:"residual"`
	Legs           []ReceiptLegResponse `json:"legs"`
	CreatedAt      string               `json:"created_at"`
}

// SpendRequest debits a category account. Reference is an optional
// idempotency key; a replay returns the stored transaction.
type SpendRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description,omitempty"`
	Reference   string `json:"reference,omitempty" binding:"omitempty,max=100"`
}

// TransferRequest moves funds between two accounts
type TransferRequest struct {
	SourceAccountID string `json:"source_account_id" binding:"required,uuid"`
	DestAccountID   string `json:"dest_account_id" binding:"required,uuid"`
	Amount          string `json:"amount" binding:"required"`
	Description     string `json:"description,omitempty"`
}

// TransferResponse carries both sides of a completed transfer
type TransferResponse struct {
	Debit  TransactionResponse `json:"debit"`
	Credit TransactionResponse `json:"credit"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID                 string `json:"id"`
	AccountID          string `json:"account_id"`
	Type               string `json:"type"`
	Status             string `json:"status"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	BalanceAfter       string `json:"balance_after"`
	SenderAccountID    string `json:"sender_account_id,omitempty"`
	RecipientAccountID string `json:"recipient_account_id,omitempty"`
	DistributionID     string `json:"distribution_id,omitempty"`
	Reference          string `json:"reference,omitempty"`
	Description        string `json:"description,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// TransactionListResponse represents account history in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// HistoryParams narrows history queries
type HistoryParams struct {
	Since string `form:"since" binding:"omitempty"`
	Type  string `form:"type" binding:"omitempty,oneof=deposit credit debit transfer_in transfer_out"`
	Limit int    `form:"limit,default=50" binding:"min=1,max=500"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:            acc.ID.String(),
		OwnerID:       acc.OwnerID.String(),
		Kind:          "category",
		Category:      acc.Kind.CategoryName(),
		AccountNumber: acc.AccountNumber,
		Balance:       formatAmount(acc.Balance),
		Currency:      acc.Currency,
		Status:        string(acc.Status),
		CreatedAt:     acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     acc.UpdatedAt.Format(time.RFC3339),
	}
	if acc.Kind.IsMain() {
		resp.Kind = "main"
	}
	if acc.CaregiverID != nil {
		resp.CaregiverID = acc.CaregiverID.String()
	}
	if acc.ParentID != nil {
		resp.ParentID = acc.ParentID.String()
	}
	return resp
}

func mapSetToResponse(set *account.Set) AccountSetResponse {
	resp := AccountSetResponse{
		OwnerID:      set.Main.OwnerID.String(),
		TotalBalance: formatAmount(set.Total()),
	}
	for _, acc := range set.All() {
		accResp := mapAccountToResponse(acc)
		if acc.Kind.IsMain() {
			reserve := formatAmount(acc.Balance)
			accResp.ReserveBalance = &reserve
			accResp.Balance = formatAmount(set.Total())
		}
		resp.Accounts = append(resp.Accounts, accResp)
	}
	return resp
}

func mapReceiptToResponse(receipt *ledger.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		DistributionID: receipt.DistributionID.String(),
		OwnerID:        receipt.OwnerID.String(),
		Reference:      receipt.Reference,
		Amount:         formatAmount(receipt.Amount),
		Currency:       receipt.Currency,
		Reserve:        mapReceiptLegToResponse(receipt.Reserve),
		Residual:       formatAmount(receipt.Residual),
		CreatedAt:      receipt.CreatedAt.Format(time.RFC3339),
	}
	for _, leg := range receipt.Legs {
		resp.Legs = append(resp.Legs, mapReceiptLegToResponse(leg))
	}
	return resp
}

func mapReceiptLegToResponse(leg ledger.ReceiptLeg) ReceiptLegResponse {
	resp := ReceiptLegResponse{
		Category:  leg.Category,
		AccountID: leg.AccountID.String(),
		Amount:    formatAmount(leg.Amount),
	}
	if leg.TransactionID != nil {
		resp.TransactionID = leg.TransactionID.String()
	}
	return resp
}

func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:           txn.ID.String(),
		AccountID:    txn.AccountID.String(),
		Type:         string(txn.Type),
		Status:       string(txn.Status),
		Amount:       formatAmount(txn.Amount),
		Currency:     txn.Currency,
		BalanceAfter: formatAmount(txn.BalanceAfter),
		Reference:    txn.Reference,
		Description:  txn.Description,
		CreatedAt:    txn.CreatedAt.Format(time.RFC3339),
	}
	if txn.SenderAccountID != nil {
		resp.SenderAccountID = txn.SenderAccountID.String()
	}
	if txn.RecipientAccountID != nil {
		resp.RecipientAccountID = txn.RecipientAccountID.String()
	}
	if txn.DistributionID != nil {
		resp.DistributionID = txn.DistributionID.String()
	}
	return resp
}
