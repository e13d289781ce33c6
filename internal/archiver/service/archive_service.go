package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/famvault/custodial-ledger/internal/domain/shared"
	"github.com/famvault/custodial-ledger/internal/domain/statement"
)

// StatementArchiveService maps ledger events onto statement entries and
// upserts them into the archive. Upserting by transaction id makes
// re-delivered events harmless.
type StatementArchiveService struct {
	statements statement.Repository
	logger     *slog.Logger
}

// NewStatementArchiveService creates a new archive service
func NewStatementArchiveService(logger *slog.Logger, statements statement.Repository) *StatementArchiveService {
	return &StatementArchiveService{
		statements: statements,
		logger:     logger,
	}
}

// ArchiveEvent stores one ledger event as a statement entry
func (s *StatementArchiveService) ArchiveEvent(ctx context.Context, event *shared.LedgerEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	entry := &statement.Entry{
		TransactionID:      event.TransactionID,
		AccountID:          event.AccountID,
		OwnerID:            event.OwnerID,
		DistributionID:     event.DistributionID,
		Type:               event.Type,
		Status:             event.Status,
		Amount:             event.Amount,
		Currency:           event.Currency,
		BalanceAfter:       event.BalanceAfter,
		SenderAccountID:    event.SenderAccountID,
		RecipientAccountID: event.RecipientAccountID,
		Reference:          event.Reference,
		Description:        event.Description,
		CorrelationID:      event.CorrelationID,
		OccurredAt:         event.OccurredAt,
		ArchivedAt:         time.Now().UTC(),
	}

	if err := s.statements.Upsert(ctx, entry); err != nil {
		logger.Error("Failed to archive statement entry",
			"transaction_id", event.TransactionID.String(),
			"account_id", event.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to archive statement entry %s: %w", event.TransactionID, err)
	}

	logger.Debug("Archived statement entry",
		"transaction_id", event.TransactionID.String(),
		"account_id", event.AccountID.String(),
		"type", event.Type,
	)
	return nil
}
