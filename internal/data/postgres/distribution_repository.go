package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/famvault/custodial-ledger/internal/domain/distribution"
	"github.com/famvault/custodial-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DistributionRepository implements the distribution.Repository interface
// for PostgreSQL
type DistributionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDistributionRepository creates a new PostgreSQL distribution repository
func NewDistributionRepository(logger *slog.Logger, db *persistence.PostgresDB) distribution.Repository {
	return &DistributionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *DistributionRepository) WithTx(tx pgx.Tx) distribution.Repository {
	return &DistributionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const distributionColumns = `id, owner_id, reference, amount, reserve_amount, currency, created_at`

func scanDistribution(row pgx.Row) (*distribution.Distribution, error) {
	var (
		d         distribution.Distribution
		reference *string
	)
	err := row.Scan(&d.ID, &d.OwnerID, &reference, &d.Amount, &d.ReserveAmount, &d.Currency, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if reference != nil {
		d.Reference = *reference
	}
	return &d, nil
}

// Create stores a distribution record. The uniqueness constraint on the
// reference column is what makes deposit replays detectable.
func (r *DistributionRepository) Create(ctx context.Context, d *distribution.Distribution) error {
	query := `
		INSERT INTO distributions (id, owner_id, reference, amount, reserve_amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var reference *string
	if d.Reference != "" {
		reference = &d.Reference
	}

	_, err := r.querier.Exec(ctx, query, d.ID, d.OwnerID, reference, d.Amount, d.ReserveAmount, d.Currency, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "reference") {
			return distribution.ErrDuplicateReference{Reference: d.Reference}
		}
		r.logger.Error("Failed to create distribution", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to create distribution: %w", err)
	}

	return nil
}

// GetByReference retrieves a distribution by its idempotency reference.
// Returns nil, nil when no distribution carries the reference.
func (r *DistributionRepository) GetByReference(ctx context.Context, reference string) (*distribution.Distribution, error) {
	query := `
		SELECT ` + distributionColumns + `
		FROM distributions
		WHERE reference = $1
	`

	d, err := scanDistribution(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get distribution by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get distribution by reference: %w", err)
	}

	return d, nil
}

// GetByID retrieves a distribution by its ID
func (r *DistributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*distribution.Distribution, error) {
	query := `
		SELECT ` + distributionColumns + `
		FROM distributions
		WHERE id = $1
	`

	d, err := scanDistribution(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, distribution.ErrDistributionNotFound{DistributionID: id}
		}
		r.logger.Error("Failed to get distribution", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get distribution: %w", err)
	}

	return d, nil
}
