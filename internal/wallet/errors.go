package wallet

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound indicates the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransactionNotFound indicates the referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidAmount rejects non-positive amounts or amounts with more
	// than two fractional digits before any mutation occurs.
	ErrInvalidAmount = errors.New("amount must be positive with at most two decimal places")

	// ErrInvalidCurrency rejects currency codes outside the supported set.
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrInvalidStatus rejects approval decisions other than APPROVED/DENIED.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrTransactionNotPending indicates an attempt to settle a transaction
	// already in a terminal state.
	ErrTransactionNotPending = errors.New("only pending transactions can be approved or denied")
)

// InsufficientBalanceError reports a withdrawal exceeding the usable balance.
// It carries both values so callers can display them.
type InsufficientBalanceError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %s, available %s",
		e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

// WalletNotActiveError reports which capability flag blocked an operation.
type WalletNotActiveError struct {
	Capability string // "shopping" or "withdraw"
}

func (e *WalletNotActiveError) Error() string {
	return "wallet is not active for " + e.Capability
}
