package service

import (
	"context"

	"github.com/famvault/custodial-ledger/internal/domain/shared"
)

// ArchiveService writes ledger events into the statement archive.
// Events may be re-delivered, so implementations must be idempotent
// by transaction id.
type ArchiveService interface {
	ArchiveEvent(ctx context.Context, event *shared.LedgerEvent) error
}
