package wallet

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory Store used by tests and by the
// dev server when no database is configured. Per-wallet mutexes serialize
// balance mutations the same way the Postgres backend's row locks do, while
// different wallets stay independent.
type MemoryStore struct {
	mu           sync.RWMutex
	wallets      map[string]Wallet
	transactions map[string]Transaction
	byWallet     map[string][]string // transaction ids in insertion order

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets:      make(map[string]Wallet),
		transactions: make(map[string]Transaction),
		byWallet:     make(map[string][]string),
		locks:        make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) walletLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *MemoryStore) CreateWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[w.ID]; exists {
		return errors.New("wallet already exists")
	}
	s.wallets[w.ID] = w
	return nil
}

func (s *MemoryStore) GetWallet(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *MemoryStore) FindWalletForCustomer(_ context.Context, walletID, customerID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[walletID]
	if !ok || w.CustomerID != customerID {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *MemoryStore) ListWallets(_ context.Context, customerID string, currency Currency) ([]Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Wallet, 0)
	for _, w := range s.wallets {
		if w.CustomerID != customerID {
			continue
		}
		if currency != "" && w.Currency != currency {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.transactions[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return txn, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, walletID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.wallets[walletID]; !ok {
		return nil, ErrWalletNotFound
	}
	ids := s.byWallet[walletID]
	out := make([]Transaction, 0, len(ids))
	// Newest first, matching the Postgres ORDER BY created_at DESC.
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, s.transactions[ids[i]])
	}
	return out, nil
}

func (s *MemoryStore) UpdateWallet(_ context.Context, walletID string, fn func(w *Wallet) (*Transaction, error)) error {
	lock := s.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	w, ok := s.wallets[walletID]
	s.mu.RUnlock()
	if !ok {
		return ErrWalletNotFound
	}

	txn, err := fn(&w)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[walletID] = w
	if txn != nil {
		s.transactions[txn.ID] = *txn
		s.byWallet[walletID] = append(s.byWallet[walletID], txn.ID)
	}
	return nil
}

func (s *MemoryStore) SettleTransaction(_ context.Context, transactionID string, fn func(txn *Transaction, w *Wallet) error) error {
	s.mu.RLock()
	txn, ok := s.transactions[transactionID]
	s.mu.RUnlock()
	if !ok {
		return ErrTransactionNotFound
	}

	lock := s.walletLock(txn.WalletID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read both records under the wallet lock; a concurrent settlement
	// may have raced the first read.
	s.mu.RLock()
	txn, ok = s.transactions[transactionID]
	w, wok := s.wallets[txn.WalletID]
	s.mu.RUnlock()
	if !ok {
		return ErrTransactionNotFound
	}
	if !wok {
		return ErrWalletNotFound
	}

	if err := fn(&txn, &w); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[transactionID] = txn
	s.wallets[w.ID] = w
	return nil
}
