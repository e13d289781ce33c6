package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/famvault/custodial-ledger/internal/api/middleware"
	"github.com/famvault/custodial-ledger/internal/ledger"
)

// LedgerHandler handles HTTP requests for deposits, spends and transfers
type LedgerHandler struct {
	ledgerService LedgerService
	logger        *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, ledgerService LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Deposit distributes an incoming deposit across the owner's account set.
// First submission of a reference answers 201; a replay answers 200 with
// the identical receipt.
func (h *LedgerHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	receipt, created, err := h.ledgerService.Distribute(c.Request.Context(), ledger.DepositRequest{
		OwnerID:       ownerID,
		Amount:        amount,
		Reference:     req.Reference,
		Description:   req.Description,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.logger.Error("Deposit failed", "owner_id", req.OwnerID, "error", err)
		respondDomainError(c, err)
		return
	}

	if created {
		RespondCreated(c, mapReceiptToResponse(receipt))
		return
	}
	RespondOK(c, mapReceiptToResponse(receipt))
}

// Spend debits a category account
func (h *LedgerHandler) Spend(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	txn, created, err := h.ledgerService.Spend(c.Request.Context(), ledger.SpendRequest{
		AccountID:     accountID,
		Amount:        amount,
		Description:   req.Description,
		Reference:     req.Reference,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.logger.Error("Spend failed", "account_id", accountID.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	if created {
		RespondCreated(c, mapTransactionToResponse(txn))
		return
	}
	RespondOK(c, mapTransactionToResponse(txn))
}

// Transfer moves funds between two accounts of the hierarchy
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sourceID, err := uuid.Parse(req.SourceAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid source account ID")
		return
	}
	destID, err := uuid.Parse(req.DestAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid destination account ID")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	debit, credit, err := h.ledgerService.Transfer(c.Request.Context(), ledger.TransferRequest{
		SourceAccountID: sourceID,
		DestAccountID:   destID,
		Amount:          amount,
		Description:     req.Description,
		CorrelationID:   middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.logger.Error("Transfer failed",
			"source_account_id", req.SourceAccountID,
			"dest_account_id", req.DestAccountID,
			"error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, TransferResponse{
		Debit:  mapTransactionToResponse(debit),
		Credit: mapTransactionToResponse(credit),
	})
}
