package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultLockTimeout = 5 * time.Second

const walletColumns = `id, customer_id, wallet_name, currency, active_for_shopping, active_for_withdraw, balance, usable_balance, created_at`

const transactionColumns = `id, wallet_id, amount, type, opposite_party_type, opposite_party, status, created_at, updated_at`

// PostgresStore persists wallets and transactions in PostgreSQL. Balance
// mutations take a row-level lock (SELECT ... FOR UPDATE) on the wallet for
// the duration of the enclosing transaction, which serializes concurrent
// operations per wallet. Lock waits are bounded by lock_timeout so a stuck
// lock surfaces as a retryable failure instead of hanging the caller.
type PostgresStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresStore builds a store backed by PostgreSQL. A non-positive
// lockTimeout falls back to the default of 5s.
func NewPostgresStore(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresStore {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &PostgresStore{db: db, lockTimeout: lockTimeout}
}

func (s *PostgresStore) CreateWallet(ctx context.Context, w Wallet) error {
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (`+walletColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.CustomerID, w.Name, w.Currency, w.ActiveForShopping, w.ActiveForWithdraw,
		w.Balance, w.UsableBalance, w.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, id string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func (s *PostgresStore) FindWalletForCustomer(ctx context.Context, walletID, customerID string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND customer_id = $2`,
		walletID, customerID)
	return scanWallet(row)
}

func (s *PostgresStore) ListWallets(ctx context.Context, customerID string, currency Currency) ([]Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE customer_id = $1 ORDER BY created_at`
	args := []any{customerID}
	if currency != "" {
		query = `SELECT ` + walletColumns + ` FROM wallets WHERE customer_id = $1 AND currency = $2 ORDER BY created_at`
		args = append(args, currency)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	wallets := make([]Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (s *PostgresStore) ListTransactions(ctx context.Context, walletID string) ([]Transaction, error) {
	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE wallet_id = $1 ORDER BY created_at DESC`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (s *PostgresStore) UpdateWallet(ctx context.Context, walletID string, fn func(w *Wallet) (*Transaction, error)) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		w, err := lockWallet(ctx, tx, walletID)
		if err != nil {
			return err
		}

		txn, err := fn(&w)
		if err != nil {
			return err
		}

		if err := saveWallet(ctx, tx, w); err != nil {
			return err
		}
		if txn != nil {
			if err := insertTransaction(ctx, tx, *txn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) SettleTransaction(ctx context.Context, transactionID string, fn func(txn *Transaction, w *Wallet) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, transactionID)
		txn, err := scanTransaction(row)
		if err != nil {
			return err
		}

		w, err := lockWallet(ctx, tx, txn.WalletID)
		if err != nil {
			return err
		}

		if err := fn(&txn, &w); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
			txn.Status, txn.UpdatedAt.UTC(), txn.ID); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return saveWallet(ctx, tx, w)
	})
}

// inTx runs fn inside a transaction with a bounded lock wait, rolling back on
// any error.
func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	timeoutMs := s.lockTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMs)); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockWallet(ctx context.Context, tx pgx.Tx, walletID string) (Wallet, error) {
	row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, walletID)
	return scanWallet(row)
}

func saveWallet(ctx context.Context, tx pgx.Tx, w Wallet) error {
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, usable_balance = $2,
        active_for_shopping = $3, active_for_withdraw = $4 WHERE id = $5`,
		w.Balance, w.UsableBalance, w.ActiveForShopping, w.ActiveForWithdraw, w.ID); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, txn Transaction) error {
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (`+transactionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID, txn.WalletID, txn.Amount, txn.Type, txn.OppositePartyType,
		txn.OppositeParty, txn.Status, txn.CreatedAt.UTC(), txn.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.CustomerID, &w.Name, &w.Currency, &w.ActiveForShopping,
		&w.ActiveForWithdraw, &w.Balance, &w.UsableBalance, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var txn Transaction
	err := row.Scan(&txn.ID, &txn.WalletID, &txn.Amount, &txn.Type, &txn.OppositePartyType,
		&txn.OppositeParty, &txn.Status, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	txn.CreatedAt = txn.CreatedAt.UTC()
	txn.UpdatedAt = txn.UpdatedAt.UTC()
	return txn, nil
}
