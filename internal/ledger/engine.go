// Package ledger implements the allocation engine: the single writer of
// balance mutations and ledger entries. Every operation runs inside one
// database transaction with the owner's main account row locked first, so
// concurrent deposits, spends and transfers for the same owner serialize
// while different owners proceed in parallel.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/famvault/custodial-ledger/internal/domain/account"
	"github.com/famvault/custodial-ledger/internal/domain/distribution"
	"github.com/famvault/custodial-ledger/internal/domain/outbox"
	"github.com/famvault/custodial-ledger/internal/domain/policy"
	"github.com/famvault/custodial-ledger/internal/domain/shared"
	"github.com/famvault/custodial-ledger/internal/domain/transaction"
)

// metadata keys linking ledger entries back to their distribution role
const (
	metaCategory = "category"
	metaLeg      = "leg"
	legReserve   = "reserve"
)

// TxRunner abstracts the database transaction boundary.
// persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Engine coordinates the account store, the transaction log and the
// distribution policy. It is safe for concurrent use.
type Engine struct {
	db            TxRunner
	accounts      account.Repository
	transactions  transaction.Repository
	distributions distribution.Repository
	outbox        outbox.Repository
	policy        *policy.Policy
	currency      string
	logger        *slog.Logger
}

// NewEngine creates the allocation engine. The policy must already be
// validated; construction does not re-validate it.
func NewEngine(
	logger *slog.Logger,
	db TxRunner,
	accounts account.Repository,
	transactions transaction.Repository,
	distributions distribution.Repository,
	outboxRepo outbox.Repository,
	pol *policy.Policy,
	currency string,
) *Engine {
	return &Engine{
		db:            db,
		accounts:      accounts,
		transactions:  transactions,
		distributions: distributions,
		outbox:        outboxRepo,
		policy:        pol,
		currency:      currency,
		logger:        logger,
	}
}

// DepositRequest is one incoming deposit to distribute across the owner's
// account set.
type DepositRequest struct {
	OwnerID       uuid.UUID
	Amount        int64 // Minor units
	Reference     string
	Description   string
	CorrelationID string
}

// Distribute splits a deposit across the owner's account set per the
// policy: the reserve share lands on the main account (with any rounding
// residual folded in), each category gets its rounded share, and one
// ledger entry per non-zero share is written. All of it commits or none
// of it does. The returned bool is false when the reference was seen
// before and the stored receipt is being replayed.
func (e *Engine) Distribute(ctx context.Context, req DepositRequest) (*Receipt, bool, error) {
	if req.Amount <= 0 {
		return nil, false, account.ErrInvalidAmount
	}

	logger := e.logger
	if req.CorrelationID != "" {
		logger = logger.With("correlation_id", req.CorrelationID)
	}

	if req.Reference != "" {
		prior, err := e.distributions.GetByReference(ctx, req.Reference)
		if err != nil {
			return nil, false, err
		}
		if prior != nil {
			logger.Info("Deposit replayed, returning stored receipt",
				"owner_id", req.OwnerID.String(),
				"reference", req.Reference)
			receipt, err := e.rebuildReceipt(ctx, prior)
			return receipt, false, err
		}
	}

	var receipt *Receipt
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountsTx := e.accounts.WithTx(tx)

		owned, err := accountsTx.ListByOwner(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		set, err := account.NewSet(owned, e.policy.Categories())
		if err != nil {
			return err
		}

		// Serializes all mutations for this owner.
		main, err := accountsTx.LockForUpdate(ctx, set.Main.ID)
		if err != nil {
			return err
		}
		if !main.IsOperational() {
			return account.ErrAccountFrozen
		}

		alloc := e.policy.Split(req.Amount)

		dist := &distribution.Distribution{
			ID:            uuid.New(),
			OwnerID:       req.OwnerID,
			Reference:     req.Reference,
			Amount:        req.Amount,
			ReserveAmount: alloc.Reserve,
			Currency:      main.Currency,
			CreatedAt:     time.Now(),
		}
		if err := e.distributions.WithTx(tx).Create(ctx, dist); err != nil {
			return err
		}

		receipt = &Receipt{
			DistributionID: dist.ID,
			OwnerID:        req.OwnerID,
			Reference:      req.Reference,
			Amount:         req.Amount,
			Currency:       dist.Currency,
			Residual:       alloc.Residual,
			CreatedAt:      dist.CreatedAt,
		}

		// Reserve share first, then categories in policy order.
		receipt.Reserve, err = e.creditLeg(ctx, tx, main, alloc.Reserve, dist, legReserve, req)
		if err != nil {
			return err
		}
		for _, leg := range alloc.Legs {
			target := set.Category(leg.Category)
			receiptLeg, err := e.creditLeg(ctx, tx, target, leg.Amount, dist, leg.Category, req)
			if err != nil {
				return err
			}
			receipt.Legs = append(receipt.Legs, receiptLeg)
		}

		return nil
	})
	if err != nil {
		// A concurrent request with the same reference won the race;
		// treat it like any other replay.
		if req.Reference != "" && errors.Is(err, distribution.ErrDuplicateReference{}) {
			prior, lookupErr := e.distributions.GetByReference(ctx, req.Reference)
			if lookupErr == nil && prior != nil {
				receipt, rebuildErr := e.rebuildReceipt(ctx, prior)
				return receipt, false, rebuildErr
			}
		}
		logger.Error("Distribution rolled back",
			"owner_id", req.OwnerID.String(),
			"amount", req.Amount,
			"error", err)
		return nil, false, fmt.Errorf("%w: %w", ErrDistributionFailed, err)
	}

	logger.Info("Deposit distributed",
		"owner_id", req.OwnerID.String(),
		"distribution_id", receipt.DistributionID.String(),
		"amount", req.Amount,
		"reserve", receipt.Reserve.Amount,
		"residual", receipt.Residual)
	return receipt, true, nil
}

// creditLeg applies one share of a distribution to an account and records
// the ledger entry plus its outbox event. Zero shares produce no entry:
// the receipt leg carries the amount with no transaction id.
func (e *Engine) creditLeg(ctx context.Context, tx pgx.Tx, acc *account.Account, amount int64, dist *distribution.Distribution, role string, req DepositRequest) (ReceiptLeg, error) {
	leg := ReceiptLeg{AccountID: acc.ID, Amount: amount}
	if role != legReserve {
		leg.Category = role
	}
	if amount == 0 {
		return leg, nil
	}

	newBalance, err := e.accounts.WithTx(tx).ApplyDelta(ctx, acc.ID, amount)
	if err != nil {
		return ReceiptLeg{}, err
	}

	metadata := map[string]string{metaCategory: role}
	if role == legReserve {
		metadata = map[string]string{metaLeg: legReserve}
	}
	txn := &transaction.Transaction{
		ID:             uuid.New(),
		AccountID:      acc.ID,
		Type:           transaction.TypeDeposit,
		Status:         transaction.StatusCompleted,
		Amount:         amount,
		Currency:       acc.Currency,
		BalanceAfter:   newBalance,
		DistributionID: &dist.ID,
		Description:    req.Description,
		Metadata:       metadata,
		CorrelationID:  req.CorrelationID,
		CreatedAt:      time.Now(),
	}
	if err := e.transactions.WithTx(tx).Record(ctx, txn); err != nil {
		return ReceiptLeg{}, err
	}
	if err := e.enqueueEvent(ctx, tx, txn, acc.OwnerID); err != nil {
		return ReceiptLeg{}, err
	}

	leg.TransactionID = &txn.ID
	return leg, nil
}

// enqueueEvent writes the ledger event into the outbox in the same
// transaction as the entry it mirrors.
func (e *Engine) enqueueEvent(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction, ownerID uuid.UUID) error {
	event := &shared.LedgerEvent{
		TransactionID:      txn.ID,
		AccountID:          txn.AccountID,
		OwnerID:            ownerID,
		DistributionID:     txn.DistributionID,
		Type:               string(txn.Type),
		Status:             string(txn.Status),
		Amount:             txn.Amount,
		Currency:           txn.Currency,
		BalanceAfter:       txn.BalanceAfter,
		SenderAccountID:    txn.SenderAccountID,
		RecipientAccountID: txn.RecipientAccountID,
		Reference:          txn.Reference,
		Description:        txn.Description,
		CorrelationID:      txn.CorrelationID,
		OccurredAt:         txn.CreatedAt,
	}
	message, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return e.outbox.WithTx(tx).Create(ctx, message)
}

// rebuildReceipt reconstructs the receipt of a stored distribution from
// its rows, so a replayed deposit returns exactly what the original did.
func (e *Engine) rebuildReceipt(ctx context.Context, dist *distribution.Distribution) (*Receipt, error) {
	legs, err := e.transactions.ListByDistribution(ctx, dist.ID)
	if err != nil {
		return nil, err
	}

	owned, err := e.accounts.ListByOwner(ctx, dist.OwnerID)
	if err != nil {
		return nil, err
	}
	set, err := account.NewSet(owned, e.policy.Categories())
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		DistributionID: dist.ID,
		OwnerID:        dist.OwnerID,
		Reference:      dist.Reference,
		Amount:         dist.Amount,
		Currency:       dist.Currency,
		Residual:       e.policy.Split(dist.Amount).Residual,
		Reserve:        ReceiptLeg{AccountID: set.Main.ID, Amount: dist.ReserveAmount},
		CreatedAt:      dist.CreatedAt,
	}

	byCategory := make(map[string]*transaction.Transaction, len(legs))
	for _, txn := range legs {
		if txn.Metadata[metaLeg] == legReserve {
			id := txn.ID
			receipt.Reserve.TransactionID = &id
			continue
		}
		byCategory[txn.Metadata[metaCategory]] = txn
	}

	for _, cat := range e.policy.Categories() {
		leg := ReceiptLeg{Category: cat, AccountID: set.Category(cat).ID}
		if txn, ok := byCategory[cat]; ok {
			id := txn.ID
			leg.Amount = txn.Amount
			leg.TransactionID = &id
		}
		receipt.Legs = append(receipt.Legs, leg)
	}

	return receipt, nil
}
