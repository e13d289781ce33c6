// Package mongo provides the MongoDB statement archive repository.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/famvault/custodial-ledger/internal/domain/statement"
)

// StatementCollectionName is the name of the statement collection in MongoDB
const StatementCollectionName = "statement_entries"

// StatementRepository implements the statement.Repository interface for MongoDB
type StatementRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewStatementRepository creates a new MongoDB statement repository
func NewStatementRepository(logger *slog.Logger, db *mongo.Database) statement.Repository {
	return &StatementRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the entry keyed by transaction id. Kafka delivers at least
// once, so the archive must absorb replays without duplicating lines.
func (r *StatementRepository) Upsert(ctx context.Context, entry *statement.Entry) error {
	collection := r.db.Collection(StatementCollectionName)

	if entry.ArchivedAt.IsZero() {
		entry.ArchivedAt = time.Now()
	}

	filter := bson.M{"transaction_id": entry.TransactionID}
	update := bson.M{"$set": entry}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		r.logger.Error("Failed to upsert statement entry",
			"transaction_id", entry.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to upsert statement entry: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves a statement entry by its transaction ID.
// Returns ErrEntryNotFound if the entry has not been archived yet.
func (r *StatementRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var entry statement.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, statement.ErrEntryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get statement entry",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get statement entry: %w", err)
	}

	return &entry, nil
}

// ListByAccount retrieves paginated statement entries for an account,
// newest first.
func (r *StatementRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list statement entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list statement entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*statement.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode statement entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode statement entries: %w", err)
	}

	return entries, nil
}

// CountByAccount counts the archived entries for an account
func (r *StatementRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"account_id": accountID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count statement entries",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count statement entries: %w", err)
	}

	return count, nil
}
