package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bosphorus-pay/bosphorus_pay/internal/notification"
)

// Approvals settles pending transactions. Settlement moves a transaction to
// its terminal state and reconciles the owning wallet so the balances match
// the outcome:
//
//	type     | decision | balance    | usable balance
//	DEPOSIT  | APPROVED |  unchanged | +amount
//	DEPOSIT  | DENIED   |  -amount   | unchanged
//	WITHDRAW | APPROVED |  -amount   | unchanged
//	WITHDRAW | DENIED   |  unchanged | +amount
//
// Each row reverses exactly the pending side-effect the original operation
// applied, or applies the side-effect it deferred.
type Approvals struct {
	store    Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewApprovals builds the approval resolver. notifier may be nil.
func NewApprovals(store Store, notifier notification.Notifier, logger *slog.Logger) *Approvals {
	if store == nil {
		panic("wallet: store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Approvals{store: store, notifier: notifier, logger: logger}
}

// Get fetches a single transaction.
func (a *Approvals) Get(ctx context.Context, transactionID string) (Transaction, error) {
	return a.store.GetTransaction(ctx, transactionID)
}

// List returns a wallet's transactions, newest first.
func (a *Approvals) List(ctx context.Context, walletID string) ([]Transaction, error) {
	return a.store.ListTransactions(ctx, walletID)
}

// Settle transitions a pending transaction to the given terminal decision
// and reconciles the wallet in the same atomic unit. Settling a transaction
// that is already terminal fails with ErrTransactionNotPending and changes
// nothing.
func (a *Approvals) Settle(ctx context.Context, transactionID, decision string) (Transaction, error) {
	status, err := ParseDecision(decision)
	if err != nil {
		return Transaction{}, err
	}

	var settled Transaction
	err = a.store.SettleTransaction(ctx, transactionID, func(txn *Transaction, w *Wallet) error {
		if txn.Status != StatusPending {
			return ErrTransactionNotPending
		}

		txn.Status = status
		txn.UpdatedAt = time.Now().UTC()

		switch {
		case txn.Type == TypeDeposit && status == StatusApproved:
			w.UsableBalance = w.UsableBalance.Add(txn.Amount)
		case txn.Type == TypeDeposit && status == StatusDenied:
			w.Balance = w.Balance.Sub(txn.Amount)
		case txn.Type == TypeWithdraw && status == StatusApproved:
			w.Balance = w.Balance.Sub(txn.Amount)
		case txn.Type == TypeWithdraw && status == StatusDenied:
			w.UsableBalance = w.UsableBalance.Add(txn.Amount)
		}

		settled = *txn
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	a.logger.Info("transaction settled",
		"transaction_id", settled.ID,
		"wallet_id", settled.WalletID,
		"type", settled.Type,
		"decision", settled.Status)

	if a.notifier != nil {
		_ = a.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransactionSettled,
			Destination: settled.WalletID,
			Body: fmt.Sprintf("Your %s of %s was %s",
				settled.Type, settled.Amount.StringFixed(2), settled.Status),
		})
	}
	return settled, nil
}
