package ledger

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/famvault/custodial-ledger/internal/domain/account"
	"github.com/famvault/custodial-ledger/internal/domain/transaction"
)

// CreateAccountSet provisions an owner's full hierarchy: the main account
// plus one category account per policy category, atomically. Fails with
// ErrAccountSetExists if the owner already has any account.
func (e *Engine) CreateAccountSet(ctx context.Context, ownerID uuid.UUID, caregiverID *uuid.UUID) (*account.Set, error) {
	var set *account.Set
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountsTx := e.accounts.WithTx(tx)

		existing, err := accountsTx.ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrAccountSetExists
		}

		main, err := account.NewMain(ownerID, caregiverID, e.currency)
		if err != nil {
			return err
		}
		if err := accountsTx.Create(ctx, main); err != nil {
			return err
		}

		created := []*account.Account{main}
		for _, category := range e.policy.Categories() {
			sub, err := account.NewCategory(ownerID, caregiverID, main.ID, category, e.currency)
			if err != nil {
				return err
			}
			if err := accountsTx.Create(ctx, sub); err != nil {
				return err
			}
			created = append(created, sub)
		}

		set, err = account.NewSet(created, e.policy.Categories())
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Account set created",
		"owner_id", ownerID.String(),
		"main_account_id", set.Main.ID.String(),
		"categories", len(set.Categories))
	return set, nil
}

// Accounts returns the owner's account set in listing order: main first,
// then categories in policy order.
func (e *Engine) Accounts(ctx context.Context, ownerID uuid.UUID) (*account.Set, error) {
	owned, err := e.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return account.NewSet(owned, e.policy.Categories())
}

// SpendRequest debits one category account. Reference is an optional
// idempotency key; a replayed reference returns the stored entry.
type SpendRequest struct {
	AccountID     uuid.UUID
	Amount        int64 // Minor units
	Description   string
	Reference     string
	CorrelationID string
}

// Spend debits a category account and records the entry. The lock, the
// balance check, the mutation and the log entry share one transaction, so
// a shortfall rejects the spend with nothing mutated. The created flag is
// false when the reference matched a previously recorded spend.
func (e *Engine) Spend(ctx context.Context, req SpendRequest) (*transaction.Transaction, bool, error) {
	if req.Amount <= 0 {
		return nil, false, account.ErrInvalidAmount
	}

	if req.Reference != "" {
		prior, err := e.transactions.GetByReference(ctx, req.Reference)
		if err != nil {
			return nil, false, err
		}
		if prior != nil {
			e.logger.Info("Spend replayed, returning stored entry",
				"account_id", req.AccountID.String(),
				"reference", req.Reference)
			return prior, false, nil
		}
	}

	var txn *transaction.Transaction
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountsTx := e.accounts.WithTx(tx)

		acc, err := accountsTx.LockForUpdate(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if acc.Kind.IsMain() {
			return ErrMainAccountSpend
		}
		if !acc.IsOperational() {
			return account.ErrAccountFrozen
		}
		if !acc.CanDebit(req.Amount) {
			return ErrInsufficientBalance
		}

		newBalance, err := accountsTx.ApplyDelta(ctx, acc.ID, -req.Amount)
		if err != nil {
			return err
		}

		txn = &transaction.Transaction{
			ID:            uuid.New(),
			AccountID:     acc.ID,
			Type:          transaction.TypeDebit,
			Status:        transaction.StatusCompleted,
			Amount:        req.Amount,
			Currency:      acc.Currency,
			BalanceAfter:  newBalance,
			Description:   req.Description,
			Reference:     req.Reference,
			Metadata:      map[string]string{metaCategory: acc.Kind.CategoryName()},
			CorrelationID: req.CorrelationID,
			CreatedAt:     time.Now(),
		}
		if err := e.transactions.WithTx(tx).Record(ctx, txn); err != nil {
			return err
		}
		return e.enqueueEvent(ctx, tx, txn, acc.OwnerID)
	})
	if err != nil {
		// A concurrent request with the same reference won the race;
		// treat it like any other replay.
		if req.Reference != "" && errors.Is(err, transaction.ErrDuplicateReference{}) {
			prior, lookupErr := e.transactions.GetByReference(ctx, req.Reference)
			if lookupErr == nil && prior != nil {
				return prior, false, nil
			}
		}
		return nil, false, err
	}

	e.logger.Info("Spend recorded",
		"account_id", req.AccountID.String(),
		"transaction_id", txn.ID.String(),
		"amount", req.Amount,
		"balance_after", txn.BalanceAfter)
	return txn, true, nil
}

// TransferRequest moves funds between two accounts of the hierarchy.
type TransferRequest struct {
	SourceAccountID uuid.UUID
	DestAccountID   uuid.UUID
	Amount          int64 // Minor units
	Description     string
	CorrelationID   string
}

// Transfer debits the source and credits the destination, writing a
// transfer_out and a transfer_in entry in one atomic unit. Accounts are
// locked in id order so two opposing transfers cannot deadlock.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (debit, credit *transaction.Transaction, err error) {
	if req.Amount <= 0 {
		return nil, nil, account.ErrInvalidAmount
	}
	if req.SourceAccountID == req.DestAccountID {
		return nil, nil, ErrSameAccount
	}

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountsTx := e.accounts.WithTx(tx)

		first, second := req.SourceAccountID, req.DestAccountID
		if bytes.Compare(second[:], first[:]) < 0 {
			first, second = second, first
		}
		if _, err := accountsTx.LockForUpdate(ctx, first); err != nil {
			return err
		}
		if _, err := accountsTx.LockForUpdate(ctx, second); err != nil {
			return err
		}

		source, err := accountsTx.GetByID(ctx, req.SourceAccountID)
		if err != nil {
			return err
		}
		dest, err := accountsTx.GetByID(ctx, req.DestAccountID)
		if err != nil {
			return err
		}
		if !source.IsOperational() || !dest.IsOperational() {
			return account.ErrAccountFrozen
		}
		if source.Currency != dest.Currency {
			return ErrCurrencyMismatch
		}
		if !source.CanDebit(req.Amount) {
			return ErrInsufficientBalance
		}

		sourceBalance, err := accountsTx.ApplyDelta(ctx, source.ID, -req.Amount)
		if err != nil {
			return err
		}
		destBalance, err := accountsTx.ApplyDelta(ctx, dest.ID, req.Amount)
		if err != nil {
			return err
		}

		now := time.Now()
		debit = &transaction.Transaction{
			ID:                 uuid.New(),
			AccountID:          source.ID,
			Type:               transaction.TypeTransferOut,
			Status:             transaction.StatusCompleted,
			Amount:             req.Amount,
			Currency:           source.Currency,
			BalanceAfter:       sourceBalance,
			RecipientAccountID: &dest.ID,
			Description:        req.Description,
			CorrelationID:      req.CorrelationID,
			CreatedAt:          now,
		}
		credit = &transaction.Transaction{
			ID:              uuid.New(),
			AccountID:       dest.ID,
			Type:            transaction.TypeTransferIn,
			Status:          transaction.StatusCompleted,
			Amount:          req.Amount,
			Currency:        dest.Currency,
			BalanceAfter:    destBalance,
			SenderAccountID: &source.ID,
			Description:     req.Description,
			CorrelationID:   req.CorrelationID,
			CreatedAt:       now,
		}

		transactionsTx := e.transactions.WithTx(tx)
		if err := transactionsTx.Record(ctx, debit); err != nil {
			return err
		}
		if err := transactionsTx.Record(ctx, credit); err != nil {
			return err
		}
		if err := e.enqueueEvent(ctx, tx, debit, source.OwnerID); err != nil {
			return err
		}
		return e.enqueueEvent(ctx, tx, credit, dest.OwnerID)
	})
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info("Transfer recorded",
		"source_account_id", req.SourceAccountID.String(),
		"dest_account_id", req.DestAccountID.String(),
		"amount", req.Amount)
	return debit, credit, nil
}

// History lists an account's ledger entries newest-first. The account must
// exist; an unknown id is ErrAccountNotFound, not an empty history.
func (e *Engine) History(ctx context.Context, accountID uuid.UUID, filter transaction.Filter) ([]*transaction.Transaction, error) {
	if _, err := e.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return e.transactions.ListByAccount(ctx, accountID, filter)
}

// VerifyBalance recomputes an account's balance from its completed history
// and reports it alongside the stored balance.
func (e *Engine) VerifyBalance(ctx context.Context, accountID uuid.UUID) (stored, recomputed int64, err error) {
	acc, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, 0, err
	}
	recomputed, err = e.transactions.RecomputeBalance(ctx, accountID)
	if err != nil {
		return 0, 0, err
	}
	return acc.Balance, recomputed, nil
}

// SetAccountStatus transitions an account's lifecycle state. Deactivation
// is terminal: an inactive account cannot be frozen or reactivated.
func (e *Engine) SetAccountStatus(ctx context.Context, accountID uuid.UUID, status account.Status) (*account.Account, error) {
	var acc *account.Account
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountsTx := e.accounts.WithTx(tx)

		locked, err := accountsTx.LockForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if locked.Status == account.StatusInactive {
			return ErrAccountDeactivated
		}

		if err := accountsTx.UpdateStatus(ctx, accountID, status); err != nil {
			return err
		}
		locked.Status = status
		acc = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Account status changed",
		"account_id", accountID.String(),
		"status", string(status))
	return acc, nil
}
