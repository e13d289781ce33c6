package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/famvault/custodial-ledger/internal/archiver/service"
	"github.com/famvault/custodial-ledger/internal/domain/shared"
	"github.com/famvault/custodial-ledger/internal/platform/messaging/producers"
)

// StatementEventHandler handles incoming ledger event messages from Kafka
type StatementEventHandler struct {
	archiveService service.ArchiveService
	producer       producers.DeadLetterPublisher
	logger         *slog.Logger
}

// NewStatementEventHandler creates a new handler
func NewStatementEventHandler(
	logger *slog.Logger,
	archiveService service.ArchiveService,
	producer producers.DeadLetterPublisher,
) *StatementEventHandler {
	return &StatementEventHandler{
		archiveService: archiveService,
		producer:       producer,
		logger:         logger,
	}
}

// HandleMessage processes Kafka messages
func (h *StatementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.LedgerEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal ledger event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Debug("Received ledger event for archiving",
		"transaction_id", event.TransactionID.String(),
		"account_id", event.AccountID.String(),
		"type", event.Type,
		"amount", event.Amount,
	)

	if err := h.archiveService.ArchiveEvent(ctx, &event); err != nil {
		logger.Error("Failed to archive ledger event",
			"transaction_id", event.TransactionID.String(),
			"account_id", event.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("archiving event %s failed: %w", event.TransactionID.String(), err)
	}

	logger.Info("Archived ledger event", "transaction_id", event.TransactionID.String())
	return nil // Success, commit offset
}
