package wallet

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency enumerates the currencies a wallet can hold.
type Currency string

const (
	CurrencyTRY Currency = "TRY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// ParseCurrency validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case CurrencyTRY:
		return CurrencyTRY, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	case CurrencyEUR:
		return CurrencyEUR, nil
	default:
		return "", fmt.Errorf("%w: unknown currency %q", ErrInvalidCurrency, s)
	}
}

// TransactionType distinguishes money flowing into or out of a wallet.
// The stored amount is always positive; the sign is implied by the type.
type TransactionType string

const (
	TypeDeposit  TransactionType = "DEPOSIT"
	TypeWithdraw TransactionType = "WITHDRAW"
)

// TransactionStatus is the settlement state of a transaction. PENDING moves
// to exactly one of APPROVED or DENIED; both are terminal.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
	StatusDenied   TransactionStatus = "DENIED"
)

// ParseDecision validates an approval decision. Only the two terminal
// statuses are acceptable decisions.
func ParseDecision(s string) (TransactionStatus, error) {
	switch TransactionStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusApproved:
		return StatusApproved, nil
	case StatusDenied:
		return StatusDenied, nil
	default:
		return "", fmt.Errorf("%w: only APPROVED or DENIED allowed, got %q", ErrInvalidStatus, s)
	}
}

// OppositePartyType classifies the counterparty of a transaction.
type OppositePartyType string

const (
	PartyIBAN    OppositePartyType = "IBAN"
	PartyPayment OppositePartyType = "PAYMENT"
)

// Wallet is a per-customer, per-currency stored value account with a two-tier
// balance. Balance is the total including unsettled pending amounts;
// UsableBalance is what is immediately spendable. The two converge once all
// pending transactions for the wallet settle.
type Wallet struct {
	ID                string
	CustomerID        string
	Name              string
	Currency          Currency
	ActiveForShopping bool
	ActiveForWithdraw bool
	Balance           decimal.Decimal
	UsableBalance     decimal.Decimal
	CreatedAt         time.Time
}

// Transaction is a balance-affecting operation recorded against a wallet.
// Amount and Type never change after creation; only Status and UpdatedAt
// move, and only from PENDING.
type Transaction struct {
	ID                string
	WalletID          string
	Amount            decimal.Decimal
	Type              TransactionType
	OppositePartyType OppositePartyType
	OppositeParty     string
	Status            TransactionStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
