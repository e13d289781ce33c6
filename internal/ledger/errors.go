package ledger

import "errors"

var (
	// ErrDistributionFailed wraps whatever caused a deposit distribution to
	// roll back. No balance change from the attempt survives.
	ErrDistributionFailed = errors.New("deposit distribution failed")

	// ErrInsufficientBalance rejects a spend or transfer whose amount
	// exceeds the source account balance. Nothing is mutated.
	ErrInsufficientBalance = errors.New("insufficient balance for requested amount")

	// ErrMainAccountSpend rejects direct spending from the emergency
	// reserve. Funds leave the reserve only via transfer.
	ErrMainAccountSpend = errors.New("cannot spend directly from the main account")

	// ErrSameAccount rejects a transfer whose source and destination match.
	ErrSameAccount = errors.New("source and destination accounts are the same")

	// ErrCurrencyMismatch rejects operations across accounts with
	// different currencies.
	ErrCurrencyMismatch = errors.New("account currencies do not match")

	// ErrAccountSetExists rejects creating a second account set for an owner.
	ErrAccountSetExists = errors.New("owner already has an account set")

	// ErrAccountDeactivated rejects status changes on a deactivated
	// account; deactivation is terminal.
	ErrAccountDeactivated = errors.New("account has been deactivated")
)
