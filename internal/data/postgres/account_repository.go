// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the custodial ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/famvault/custodial-ledger/internal/domain/account"
	"github.com/famvault/custodial-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const accountColumns = `id, owner_id, caregiver_id, is_main, category, parent_account_id, account_number, balance, currency, status, created_at, updated_at`

func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		acc      account.Account
		isMain   bool
		category *string
		status   string
	)
	err := row.Scan(
		&acc.ID,
		&acc.OwnerID,
		&acc.CaregiverID,
		&isMain,
		&category,
		&acc.ParentID,
		&acc.AccountNumber,
		&acc.Balance,
		&acc.Currency,
		&status,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.Status = account.Status(status)
	if !isMain {
		if category == nil {
			return nil, fmt.Errorf("category account %s has no category", acc.ID)
		}
		kind, kindErr := account.KindCategory(*category)
		if kindErr != nil {
			return nil, kindErr
		}
		acc.Kind = kind
	}
	return &acc, nil
}

// Create stores a new account. A duplicate account number is reported as
// account.ErrDuplicateAccountNumber.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, caregiver_id, is_main, category, parent_account_id, account_number, balance, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var category *string
	if !acc.Kind.IsMain() {
		name := acc.Kind.CategoryName()
		category = &name
	}

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.CaregiverID,
		acc.Kind.IsMain(),
		category,
		acc.ParentID,
		acc.AccountNumber,
		acc.Balance,
		acc.Currency,
		string(acc.Status),
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "accounts_account_number_key" {
			return account.ErrDuplicateAccountNumber{AccountNumber: acc.AccountNumber}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByNumber retrieves an account by its human-facing account number.
// Returns nil, nil when no account carries the number.
func (r *AccountRepository) GetByNumber(ctx context.Context, accountNumber string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_number = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by number", "account_number", accountNumber, "error", err)
		return nil, fmt.Errorf("failed to get account by number: %w", err)
	}

	return acc, nil
}

// ListByOwner retrieves every account of an owner, main account first.
// Category ordering beyond that is the caller's concern (the policy
// defines the configured order).
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1
		ORDER BY is_main DESC, created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts for owner", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list accounts for owner: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, scanErr := scanAccount(rows)
		if scanErr != nil {
			r.logger.Error("Failed to scan account", "error", scanErr)
			return nil, fmt.Errorf("failed to scan account: %w", scanErr)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// ApplyDelta atomically adds delta to the account balance in a single
// conditional update, so concurrent callers can never produce a negative
// balance or mutate a non-active account. Returns the resulting balance.
func (r *AccountRepository) ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND balance + $1 >= 0
		RETURNING balance
	`

	var newBalance int64
	err := r.querier.QueryRow(ctx, query, delta, id, string(account.StatusActive)).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to apply balance delta", "id", id.String(), "delta", delta, "error", err)
		return 0, fmt.Errorf("failed to apply balance delta: %w", err)
	}

	// The guarded update matched no row: classify the rejection.
	acc, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	if !acc.IsOperational() {
		return 0, account.ErrAccountFrozen
	}
	return 0, account.ErrInsufficientFunds
}

// LockForUpdate obtains a pessimistic lock on the account and returns its
// current state. Locking an owner's main account row is what serializes
// concurrent multi-account mutations for that owner while leaving other
// owners unblocked. Must be used within a transaction.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// UpdateStatus transitions the account lifecycle state. Accounts are never
// deleted; deactivation is a status change.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status account.Status) error {
	query := `
		UPDATE accounts
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, string(status), id)
	if err != nil {
		r.logger.Error("Failed to update account status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update account status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}
