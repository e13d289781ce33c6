package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/famvault/custodial-ledger/internal/domain/shared"
)

// WorkerPoolArchiveService fans archive writes out over a bounded ants
// pool. The caller still blocks until its own event is written, so the
// consumer's offset commit keeps at-least-once semantics.
type WorkerPoolArchiveService struct {
	baseService ArchiveService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolArchiveService(
	baseService ArchiveService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolArchiveService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolArchiveService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ArchiveEvent submits the event to the worker pool and waits for the result
func (s *WorkerPoolArchiveService) ArchiveEvent(ctx context.Context, event *shared.LedgerEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Debug("Submitting event to worker pool",
		"transaction_id", event.TransactionID.String(),
		"account_id", event.AccountID.String(),
	)

	resultChan := make(chan error, 1)

	// Copy so the task never races with the caller's event
	eventCopy := *event

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ArchiveEvent(ctx, &eventCopy)
	})
	if err != nil {
		logger.Error("Failed to submit event to worker pool",
			"transaction_id", event.TransactionID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool
func (s *WorkerPoolArchiveService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool
func (s *WorkerPoolArchiveService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool
func (s *WorkerPoolArchiveService) Capacity() int {
	return s.pool.Cap()
}
