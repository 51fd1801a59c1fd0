package wallet

import "context"

// Store persists wallets and their transactions. Wallet records and the
// transactions they own always change together, so a single store owns both.
//
// UpdateWallet and SettleTransaction are the only mutation paths for
// balances. Both run their callback with an exclusive lock on the target
// wallet held for the whole load-compute-persist cycle, and persist the
// wallet update and the transaction record as one atomic unit: either both
// survive or neither does. An error returned by the callback aborts the unit
// with no partial effect. Locking is per wallet; operations on different
// wallets proceed concurrently.
type Store interface {
	CreateWallet(ctx context.Context, w Wallet) error
	GetWallet(ctx context.Context, id string) (Wallet, error)
	FindWalletForCustomer(ctx context.Context, walletID, customerID string) (Wallet, error)
	ListWallets(ctx context.Context, customerID string, currency Currency) ([]Wallet, error)

	GetTransaction(ctx context.Context, id string) (Transaction, error)
	ListTransactions(ctx context.Context, walletID string) ([]Transaction, error)

	// UpdateWallet locks the wallet row, passes the current state to fn, and
	// persists the mutated wallet together with the transaction fn returns
	// (if any).
	UpdateWallet(ctx context.Context, walletID string, fn func(w *Wallet) (*Transaction, error)) error

	// SettleTransaction locks the owning wallet row, loads the transaction,
	// and persists the mutations fn applies to both records.
	SettleTransaction(ctx context.Context, transactionID string, fn func(txn *Transaction, w *Wallet) error) error
}
