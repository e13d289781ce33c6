package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/famvault/custodial-ledger/internal/domain/account"
	"github.com/famvault/custodial-ledger/internal/ledger"
)

// respondDomainError maps engine and domain errors onto the HTTP contract.
// Specific causes are checked before the distribution wrapper so a wrapped
// frozen-account or missing-set failure keeps its own status code.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, ledger.ErrMainAccountSpend),
		errors.Is(err, ledger.ErrSameAccount),
		errors.Is(err, ledger.ErrCurrencyMismatch):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, account.ErrAccountNotFound{}):
		RespondNotFound(c, "Account not found")
	case errors.Is(err, account.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, account.ErrAccountFrozen),
		errors.Is(err, ledger.ErrAccountSetExists),
		errors.Is(err, ledger.ErrAccountDeactivated):
		RespondConflict(c, err.Error())
	case errors.Is(err, account.ErrNoAccountsConfigured):
		RespondUnprocessable(c, err.Error())
	default:
		RespondInternalError(c)
	}
}
