package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service applies balance-affecting operations to wallets. It decides
// pending-vs-approved status from the configured threshold, mutates the
// two-tier balances, and records the transaction, all inside the store's
// per-wallet atomic unit. The service performs no authorization; callers go
// through authz.Guard first.
type Service struct {
	store     Store
	threshold decimal.Decimal
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// NewService builds the wallet service. threshold is the externally
// configured pending threshold: amounts strictly above it create PENDING
// transactions that require settlement by an employee.
func NewService(store Store, threshold decimal.Decimal, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if store == nil {
		panic("wallet: store is required")
	}
	if !threshold.IsPositive() {
		panic("wallet: pending threshold must be positive")
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, threshold: threshold, metrics: metrics, logger: logger}
}

// CreateInput captures the data required to provision a wallet.
type CreateInput struct {
	CustomerID        string
	Name              string
	Currency          string
	ActiveForShopping bool
	ActiveForWithdraw bool
}

// Create provisions a wallet with zero balances for the customer.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	currency, err := ParseCurrency(input.Currency)
	if err != nil {
		return Wallet{}, err
	}
	if input.CustomerID == "" {
		return Wallet{}, fmt.Errorf("customer id is required")
	}
	if input.Name == "" {
		return Wallet{}, fmt.Errorf("wallet name is required")
	}

	w := Wallet{
		ID:                uuid.NewString(),
		CustomerID:        input.CustomerID,
		Name:              input.Name,
		Currency:          currency,
		ActiveForShopping: input.ActiveForShopping,
		ActiveForWithdraw: input.ActiveForWithdraw,
		Balance:           decimal.Zero,
		UsableBalance:     decimal.Zero,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.store.CreateWallet(ctx, w); err != nil {
		return Wallet{}, err
	}

	s.logger.Info("wallet created", "wallet_id", w.ID, "customer_id", w.CustomerID, "currency", w.Currency)
	return w, nil
}

// Get fetches a single wallet.
func (s *Service) Get(ctx context.Context, walletID string) (Wallet, error) {
	return s.store.GetWallet(ctx, walletID)
}

// List returns a customer's wallets, optionally filtered by currency.
func (s *Service) List(ctx context.Context, customerID, currency string) ([]Wallet, error) {
	var filter Currency
	if currency != "" {
		parsed, err := ParseCurrency(currency)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}
	return s.store.ListWallets(ctx, customerID, filter)
}

// WalletBelongsTo reports whether the wallet exists and is owned by the
// customer. Used by the access guard.
func (s *Service) WalletBelongsTo(ctx context.Context, walletID, customerID string) (bool, error) {
	_, err := s.store.FindWalletForCustomer(ctx, walletID, customerID)
	if err != nil {
		if err == ErrWalletNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DepositInput captures a deposit request with an already-validated shape.
type DepositInput struct {
	WalletID string
	Amount   decimal.Decimal
	Source   string // IBAN or payment reference the funds come from
}

// Deposit credits the wallet. The total balance grows immediately; the
// usable balance grows only if the transaction auto-approves. Deposits cannot
// be blocked by the wallet's capability flags.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (Transaction, error) {
	if err := validateAmount(input.Amount); err != nil {
		return Transaction{}, err
	}

	s.metrics.DepositInitiated()

	var created Transaction
	err := s.store.UpdateWallet(ctx, input.WalletID, func(w *Wallet) (*Transaction, error) {
		status := s.decideStatus(input.Amount)
		txn := newTransaction(w.ID, input.Amount, TypeDeposit, input.Source, status)

		w.Balance = w.Balance.Add(input.Amount)
		if status == StatusApproved {
			w.UsableBalance = w.UsableBalance.Add(input.Amount)
		}

		created = txn
		return &txn, nil
	})
	if err != nil {
		return Transaction{}, err
	}

	s.recordOutcome(created.Status)
	s.logger.Info("deposit processed",
		"wallet_id", input.WalletID,
		"transaction_id", created.ID,
		"amount", input.Amount.StringFixed(2),
		"status", created.Status)
	return created, nil
}

// WithdrawInput captures a withdrawal request.
type WithdrawInput struct {
	WalletID    string
	Amount      decimal.Decimal
	Destination string // IBAN or payment reference the funds go to
}

// Withdraw debits the wallet. The usable balance is reserved immediately so
// concurrent withdrawals cannot double-spend; the total balance drops only
// once the transaction is approved. The wallet must be active for the
// capability the destination implies, and the usable balance must cover the
// amount; both gates fail fast with no mutation.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (Transaction, error) {
	if err := validateAmount(input.Amount); err != nil {
		return Transaction{}, err
	}

	s.metrics.WithdrawInitiated()

	partyType := ClassifyOppositeParty(input.Destination)

	var created Transaction
	err := s.store.UpdateWallet(ctx, input.WalletID, func(w *Wallet) (*Transaction, error) {
		if partyType == PartyPayment && !w.ActiveForShopping {
			return nil, &WalletNotActiveError{Capability: "shopping"}
		}
		if partyType == PartyIBAN && !w.ActiveForWithdraw {
			return nil, &WalletNotActiveError{Capability: "withdraw"}
		}
		if w.UsableBalance.LessThan(input.Amount) {
			return nil, &InsufficientBalanceError{Requested: input.Amount, Available: w.UsableBalance}
		}

		status := s.decideStatus(input.Amount)
		txn := newTransaction(w.ID, input.Amount, TypeWithdraw, input.Destination, status)

		w.UsableBalance = w.UsableBalance.Sub(input.Amount)
		if status == StatusApproved {
			w.Balance = w.Balance.Sub(input.Amount)
		}

		created = txn
		return &txn, nil
	})
	if err != nil {
		return Transaction{}, err
	}

	s.recordOutcome(created.Status)
	s.logger.Info("withdraw processed",
		"wallet_id", input.WalletID,
		"transaction_id", created.ID,
		"amount", input.Amount.StringFixed(2),
		"status", created.Status)
	return created, nil
}

// decideStatus applies the pending-threshold rule: strictly greater than the
// threshold requires manual settlement.
func (s *Service) decideStatus(amount decimal.Decimal) TransactionStatus {
	if amount.GreaterThan(s.threshold) {
		return StatusPending
	}
	return StatusApproved
}

func (s *Service) recordOutcome(status TransactionStatus) {
	if status == StatusApproved {
		s.metrics.TransactionApproved()
	} else {
		s.metrics.TransactionPending()
	}
}

func newTransaction(walletID string, amount decimal.Decimal, txType TransactionType, party string, status TransactionStatus) Transaction {
	now := time.Now().UTC()
	return Transaction{
		ID:                uuid.NewString(),
		WalletID:          walletID,
		Amount:            amount,
		Type:              txType,
		OppositePartyType: ClassifyOppositeParty(party),
		OppositeParty:     party,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// validateAmount enforces positive amounts with at most two fractional
// digits. Rejected before any lock is taken.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}
