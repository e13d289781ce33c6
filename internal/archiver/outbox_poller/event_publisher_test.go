package outbox_poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/famvault/custodial-ledger/internal/domain/outbox"
	"github.com/famvault/custodial-ledger/internal/domain/shared"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

// MockMessagePublisher mocks the Kafka producer
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func pendingMessage(t *testing.T) *outbox.Message {
	t.Helper()

	event := &shared.LedgerEvent{
		TransactionID: uuid.New(),
		AccountID:     uuid.New(),
		OwnerID:       uuid.New(),
		Type:          "deposit",
		Status:        "completed",
		Amount:        25_000,
		Currency:      "USD",
		BalanceAfter:  25_000,
		CorrelationID: "corr-123",
	}
	msg, err := outbox.NewMessage(event)
	require.NoError(t, err)
	msg.ID = 7
	return msg
}

func TestKafkaEventPublisher_PublishEvent(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	t.Run("successful publish marks message processed", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		publisher := NewEventPublisher(mockOutboxRepo, mockProducer, logger)

		msg := pendingMessage(t)
		event, err := msg.GetEvent()
		require.NoError(t, err)

		mockProducer.On("Publish", ctx, event.AccountID.String(), mock.MatchedBy(func(v interface{}) bool {
			published, ok := v.(*shared.LedgerEvent)
			return ok && published.TransactionID == event.TransactionID
		})).Return(nil).Once()
		mockOutboxRepo.On("UpdateStatus", ctx, msg.ID, shared.OutboxStatusProcessed).Return(nil).Once()

		err = publisher.PublishEvent(ctx, msg)
		assert.NoError(t, err)

		mockProducer.AssertExpectations(t)
		mockOutboxRepo.AssertExpectations(t)
	})

	t.Run("poison payload is parked without publishing", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		publisher := NewEventPublisher(mockOutboxRepo, mockProducer, logger)

		msg := pendingMessage(t)
		msg.Payload = []byte(`{"broken`)

		mockOutboxRepo.On("UpdateStatus", ctx, msg.ID, shared.OutboxStatusFailedToPublish).Return(nil).Once()

		err := publisher.PublishEvent(ctx, msg)
		assert.Error(t, err)

		mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		mockOutboxRepo.AssertExpectations(t)
	})

	t.Run("publish failure leaves message pending", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		publisher := NewEventPublisher(mockOutboxRepo, mockProducer, logger)

		msg := pendingMessage(t)
		publishErr := errors.New("broker unavailable")

		mockProducer.On("Publish", ctx, mock.Anything, mock.Anything).Return(publishErr).Once()

		err := publisher.PublishEvent(ctx, msg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "broker unavailable")

		mockOutboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		mockProducer.AssertExpectations(t)
	})

	t.Run("processed mark failure is reported", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		publisher := NewEventPublisher(mockOutboxRepo, mockProducer, logger)

		msg := pendingMessage(t)

		mockProducer.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		mockOutboxRepo.On("UpdateStatus", ctx, msg.ID, shared.OutboxStatusProcessed).Return(errors.New("db error")).Once()

		err := publisher.PublishEvent(ctx, msg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "PROCESSED")

		mockProducer.AssertExpectations(t)
		mockOutboxRepo.AssertExpectations(t)
	})
}
