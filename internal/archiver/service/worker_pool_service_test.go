package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

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

func TestWorkerPoolArchiveService_ArchiveEvent(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	t.Run("delegates to base service", func(t *testing.T) {
		mockBase := &MockArchiveService{}
		svc, err := NewWorkerPoolArchiveService(mockBase, WorkerPoolConfig{Size: 2}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()

		event := depositEvent()
		mockBase.On("ArchiveEvent", ctx, mock.MatchedBy(func(e *shared.LedgerEvent) bool {
			return e.TransactionID == event.TransactionID
		})).Return(nil).Once()

		err = svc.ArchiveEvent(ctx, event)
		assert.NoError(t, err)
		mockBase.AssertExpectations(t)
	})

	t.Run("propagates base service error", func(t *testing.T) {
		mockBase := &MockArchiveService{}
		svc, err := NewWorkerPoolArchiveService(mockBase, WorkerPoolConfig{Size: 2}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()

		event := depositEvent()
		archiveErr := errors.New("archive failed")
		mockBase.On("ArchiveEvent", ctx, mock.Anything).Return(archiveErr).Once()

		err = svc.ArchiveEvent(ctx, event)
		assert.ErrorIs(t, err, archiveErr)
		mockBase.AssertExpectations(t)
	})

	t.Run("handles concurrent submissions", func(t *testing.T) {
		mockBase := &MockArchiveService{}
		svc, err := NewWorkerPoolArchiveService(mockBase, WorkerPoolConfig{Size: 4}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()

		const n = 20
		mockBase.On("ArchiveEvent", ctx, mock.Anything).Return(nil).Times(n)

		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = svc.ArchiveEvent(ctx, depositEvent())
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		mockBase.AssertExpectations(t)
	})
}
