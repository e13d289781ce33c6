package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/famvault/custodial-ledger/internal/domain/distribution"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const distributionColumnsPattern = `id, owner_id, reference, amount, reserve_amount, currency, created_at`

func testDistribution() *distribution.Distribution {
	return &distribution.Distribution{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		Reference:     "dep-2024-007",
		Amount:        100_000,
		ReserveAmount: 20_000,
		Currency:      "USD",
		CreatedAt:     time.Now(),
	}
}

func distributionRow(d *distribution.Distribution) *pgxmock.Rows {
	var reference *string
	if d.Reference != "" {
		reference = &d.Reference
	}
	return pgxmock.NewRows([]string{"id", "owner_id", "reference", "amount", "reserve_amount", "currency", "created_at"}).
		AddRow(d.ID, d.OwnerID, reference, d.Amount, d.ReserveAmount, d.Currency, d.CreatedAt)
}

func TestDistributionRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DistributionRepository{querier: mock, logger: logger}
	d := testDistribution()
	reference := d.Reference

	query := `
		INSERT INTO distributions \(id, owner_id, reference, amount, reserve_amount, currency, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(d.ID, d.OwnerID, &reference, d.Amount, d.ReserveAmount, d.Currency, d.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, d)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without reference inserts null", func(t *testing.T) {
		anon := testDistribution()
		anon.Reference = ""

		mock.ExpectExec(query).
			WithArgs(anon.ID, anon.OwnerID, (*string)(nil), anon.Amount, anon.ReserveAmount, anon.Currency, anon.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, anon)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate reference", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "distributions_reference_idx"}
		mock.ExpectExec(query).
			WithArgs(d.ID, d.OwnerID, &reference, d.Amount, d.ReserveAmount, d.Currency, d.CreatedAt).
			WillReturnError(pgErr)

		err := repo.Create(ctx, d)
		var dupErr distribution.ErrDuplicateReference
		assert.ErrorAs(t, err, &dupErr)
		assert.Equal(t, d.Reference, dupErr.Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("insert db error")
		mock.ExpectExec(query).
			WithArgs(d.ID, d.OwnerID, &reference, d.Amount, d.ReserveAmount, d.Currency, d.CreatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, d)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create distribution")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDistributionRepository_GetByReference(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DistributionRepository{querier: mock, logger: logger}
	expected := testDistribution()

	query := `
		SELECT ` + distributionColumnsPattern + `
		FROM distributions
		WHERE reference = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.Reference).WillReturnRows(distributionRow(expected))

		d, err := repo.GetByReference(ctx, expected.Reference)
		assert.NoError(t, err)
		assert.Equal(t, expected, d)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.Reference).WillReturnError(pgx.ErrNoRows)

		d, err := repo.GetByReference(ctx, expected.Reference)
		assert.NoError(t, err)
		assert.Nil(t, d)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("select db error")
		mock.ExpectQuery(query).WithArgs(expected.Reference).WillReturnError(dbErr)

		d, err := repo.GetByReference(ctx, expected.Reference)
		assert.Error(t, err)
		assert.Nil(t, d)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDistributionRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &DistributionRepository{querier: mock, logger: logger}
	expected := testDistribution()

	query := `
		SELECT ` + distributionColumnsPattern + `
		FROM distributions
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(distributionRow(expected))

		d, err := repo.GetByID(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, d)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		d, err := repo.GetByID(ctx, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, d)
		var notFoundErr distribution.ErrDistributionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, expected.ID, notFoundErr.DistributionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDistributionRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &DistributionRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, pgxTx, txRepo.(*DistributionRepository).querier)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
