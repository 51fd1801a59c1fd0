package authz

import (
	"context"

	"github.com/bosphorus-pay/bosphorus_pay/internal/auth"
)

// OwnershipChecker answers whether a wallet belongs to a customer.
// Satisfied by *wallet.Service.
type OwnershipChecker interface {
	WalletBelongsTo(ctx context.Context, walletID, customerID string) (bool, error)
}

// Guard is the single access-control surface in front of the wallet
// services. Employees pass every check; customers only reach their own
// customer record and wallets. The guard is consulted at the HTTP boundary;
// the services behind it are role-agnostic.
type Guard struct {
	wallets OwnershipChecker
}

// NewGuard builds the access guard.
func NewGuard(wallets OwnershipChecker) *Guard {
	return &Guard{wallets: wallets}
}

// CanActOnCustomer reports whether the caller may act on the customer's
// resources. Pure check, no storage access.
func (g *Guard) CanActOnCustomer(ident auth.Identity, customerID string) bool {
	if ident.IsEmployee() {
		return true
	}
	return ident.CustomerID != "" && ident.CustomerID == customerID
}

// CanActOnWallet reports whether the caller may act on the wallet. For
// customers this checks ownership against storage.
func (g *Guard) CanActOnWallet(ctx context.Context, ident auth.Identity, walletID string) (bool, error) {
	if ident.IsEmployee() {
		return true, nil
	}
	if ident.CustomerID == "" {
		return false, nil
	}
	return g.wallets.WalletBelongsTo(ctx, walletID, ident.CustomerID)
}
