package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/famvault/custodial-ledger/internal/domain/account"
	"github.com/famvault/custodial-ledger/internal/domain/transaction"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// CreateSet provisions the owner's full account hierarchy: the main
// account plus one account per configured category.
func (h *AccountHandler) CreateSet(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	var req CreateAccountSetRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var caregiverID *uuid.UUID
	if req.CaregiverID != "" {
		id, err := uuid.Parse(req.CaregiverID)
		if err != nil {
			RespondBadRequest(c, "Invalid caregiver ID")
			return
		}
		caregiverID = &id
	}

	set, err := h.accountService.CreateAccountSet(c.Request.Context(), ownerID, caregiverID)
	if err != nil {
		h.logger.Error("Failed to create account set", "owner_id", ownerID.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapSetToResponse(set))
}

// ListByOwner returns the owner's accounts in listing order, with the main
// account's displayed balance aggregated across the set.
func (h *AccountHandler) ListByOwner(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	set, err := h.accountService.Accounts(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list accounts", "owner_id", ownerID.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapSetToResponse(set))
}

// History returns an account's ledger entries newest-first
func (h *AccountHandler) History(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var params HistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := transaction.Filter{
		Type:  transaction.Type(params.Type),
		Limit: params.Limit,
	}
	if params.Since != "" {
		since, err := time.Parse(time.RFC3339, params.Since)
		if err != nil {
			RespondBadRequest(c, "Invalid since timestamp, want RFC 3339")
			return
		}
		filter.Since = &since
	}

	entries, err := h.accountService.History(c.Request.Context(), accountID, filter)
	if err != nil {
		h.logger.Error("Failed to get history", "account_id", accountID.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	resp := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(entries))}
	for _, txn := range entries {
		resp.Transactions = append(resp.Transactions, mapTransactionToResponse(txn))
	}
	RespondOK(c, resp)
}

// Freeze suspends all balance mutations on an account
func (h *AccountHandler) Freeze(c *gin.Context) {
	h.setStatus(c, account.StatusFrozen)
}

// Unfreeze restores a frozen account to active
func (h *AccountHandler) Unfreeze(c *gin.Context) {
	h.setStatus(c, account.StatusActive)
}

// Deactivate retires an account permanently; the history stays queryable
func (h *AccountHandler) Deactivate(c *gin.Context) {
	h.setStatus(c, account.StatusInactive)
}

func (h *AccountHandler) setStatus(c *gin.Context, status account.Status) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accountService.SetAccountStatus(c.Request.Context(), accountID, status)
	if err != nil {
		h.logger.Error("Failed to change account status",
			"account_id", accountID.String(),
			"status", string(status),
			"error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}
