package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/famvault/custodial-ledger/internal/domain/shared"
)

// MockArchiveService for testing
type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) ArchiveEvent(ctx context.Context, event *shared.LedgerEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockDLQProducer for testing
type MockDLQProducer struct {
	mock.Mock
}

func (m *MockDLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func eventMessage(t *testing.T) (*shared.LedgerEvent, []byte) {
	t.Helper()

	event := &shared.LedgerEvent{
		TransactionID: uuid.New(),
		AccountID:     uuid.New(),
		OwnerID:       uuid.New(),
		Type:          "debit",
		Status:        "completed",
		Amount:        1200,
		Currency:      "USD",
		BalanceAfter:  8800,
		OccurredAt:    time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return event, value
}

func TestStatementEventHandler_HandleMessage(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	t.Run("valid event is archived", func(t *testing.T) {
		mockService := &MockArchiveService{}
		mockDLQ := &MockDLQProducer{}
		handler := NewStatementEventHandler(logger, mockService, mockDLQ)

		event, value := eventMessage(t)

		mockService.On("ArchiveEvent", ctx, mock.MatchedBy(func(e *shared.LedgerEvent) bool {
			return e.TransactionID == event.TransactionID && e.Amount == event.Amount
		})).Return(nil).Once()

		err := handler.HandleMessage(ctx, []byte(event.AccountID.String()), value)
		assert.NoError(t, err)

		mockService.AssertExpectations(t)
		mockDLQ.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed event goes to DLQ and commits", func(t *testing.T) {
		mockService := &MockArchiveService{}
		mockDLQ := &MockDLQProducer{}
		handler := NewStatementEventHandler(logger, mockService, mockDLQ)

		value := []byte(`{"not json`)

		mockDLQ.On("PublishToDLQ", ctx, "key-1", value, mock.MatchedBy(func(reason string) bool {
			return reason != ""
		})).Return(nil).Once()

		err := handler.HandleMessage(ctx, []byte("key-1"), value)
		assert.NoError(t, err)

		mockService.AssertNotCalled(t, "ArchiveEvent", mock.Anything, mock.Anything)
		mockDLQ.AssertExpectations(t)
	})

	t.Run("malformed event with failing DLQ is retried", func(t *testing.T) {
		mockService := &MockArchiveService{}
		mockDLQ := &MockDLQProducer{}
		handler := NewStatementEventHandler(logger, mockService, mockDLQ)

		value := []byte(`{"not json`)

		mockDLQ.On("PublishToDLQ", ctx, "key-2", value, mock.Anything).Return(errors.New("dlq down")).Once()

		err := handler.HandleMessage(ctx, []byte("key-2"), value)
		assert.Error(t, err)
		mockDLQ.AssertExpectations(t)
	})

	t.Run("malformed event without DLQ is retried", func(t *testing.T) {
		mockService := &MockArchiveService{}
		handler := NewStatementEventHandler(logger, mockService, nil)

		err := handler.HandleMessage(ctx, []byte("key-3"), []byte(`{"not json`))
		assert.Error(t, err)
	})

	t.Run("archive failure does not commit", func(t *testing.T) {
		mockService := &MockArchiveService{}
		mockDLQ := &MockDLQProducer{}
		handler := NewStatementEventHandler(logger, mockService, mockDLQ)

		event, value := eventMessage(t)
		archiveErr := errors.New("mongo unavailable")

		mockService.On("ArchiveEvent", ctx, mock.Anything).Return(archiveErr).Once()

		err := handler.HandleMessage(ctx, []byte(event.AccountID.String()), value)
		assert.Error(t, err)
		assert.ErrorIs(t, err, archiveErr)

		mockService.AssertExpectations(t)
	})
}
