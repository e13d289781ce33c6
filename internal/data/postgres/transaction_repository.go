package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/famvault/custodial-ledger/internal/domain/transaction"
	"github.com/famvault/custodial-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// defaultHistoryLimit caps unbounded history queries.
const defaultHistoryLimit = 100

// TransactionRepository implements the transaction.Repository interface
// for PostgreSQL. Entries are append-only: after Record only the status
// column ever changes.
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const transactionColumns = `id, account_id, type, status, amount, currency, balance_after, sender_account_id, recipient_account_id, distribution_id, reference, description, metadata, correlation_id, created_at`

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var (
		txn       transaction.Transaction
		txnType   string
		status    string
		reference *string
		metadata  []byte
	)
	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txnType,
		&status,
		&txn.Amount,
		&txn.Currency,
		&txn.BalanceAfter,
		&txn.SenderAccountID,
		&txn.RecipientAccountID,
		&txn.DistributionID,
		&reference,
		&txn.Description,
		&metadata,
		&txn.CorrelationID,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Type = transaction.Type(txnType)
	txn.Status = transaction.Status(status)
	if reference != nil {
		txn.Reference = *reference
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
		}
	}
	return &txn, nil
}

// Record appends a ledger entry. An empty reference is stored as NULL so
// the partial unique index only guards caller-supplied idempotency keys.
func (r *TransactionRepository) Record(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, type, status, amount, currency, balance_after, sender_account_id, recipient_account_id, distribution_id, reference, description, metadata, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	var reference *string
	if txn.Reference != "" {
		reference = &txn.Reference
	}

	var metadata []byte
	if len(txn.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(txn.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode transaction metadata: %w", err)
		}
	}

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.AccountID,
		string(txn.Type),
		string(txn.Status),
		txn.Amount,
		txn.Currency,
		txn.BalanceAfter,
		txn.SenderAccountID,
		txn.RecipientAccountID,
		txn.DistributionID,
		reference,
		txn.Description,
		metadata,
		txn.CorrelationID,
		txn.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "reference") {
			return transaction.ErrDuplicateReference{Reference: txn.Reference}
		}
		r.logger.Error("Failed to record transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetByReference retrieves a transaction by its idempotency reference.
// Returns nil, nil when no entry carries the reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference = $1
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	return txn, nil
}

// ListByAccount returns an account's entries newest-first, optionally
// narrowed by the filter.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, filter transaction.Filter) ([]*transaction.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1`)

	args := []interface{}{accountID}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		fmt.Fprintf(&sb, " AND type = $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.querier.Query(ctx, sb.String(), args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByDistribution returns every leg recorded for a distribution, in
// insertion order (reserve first, then categories in policy order).
func (r *TransactionRepository) ListByDistribution(ctx context.Context, distributionID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE distribution_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, distributionID)
	if err != nil {
		r.logger.Error("Failed to list transactions for distribution", "distribution_id", distributionID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions for distribution: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return txns, nil
}

// RecomputeBalance derives the account balance from its completed history.
// Used by audit checks to verify the stored balance.
func (r *TransactionRepository) RecomputeBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type IN ('deposit', 'credit', 'transfer_in') THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE account_id = $1 AND status = 'completed'
	`

	var balance int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		r.logger.Error("Failed to recompute balance", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to recompute balance: %w", err)
	}

	return balance, nil
}

// UpdateStatus transitions a transaction's processing status. The only
// mutation the log permits after an entry is recorded.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status transaction.Status) error {
	query := `
		UPDATE transactions
		SET status = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, string(status), id)
	if err != nil {
		r.logger.Error("Failed to update transaction status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}
