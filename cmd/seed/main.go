// Command seed loads a small demo data set: one back-office employee, three
// customers and a handful of wallets with opening deposits. Safe to re-run,
// existing usernames are skipped.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/bosphorus-pay/bosphorus_pay/internal/config"
	"github.com/bosphorus-pay/bosphorus_pay/internal/identity"
	"github.com/bosphorus-pay/bosphorus_pay/internal/infra"
	"github.com/bosphorus-pay/bosphorus_pay/internal/logging"
	"github.com/bosphorus-pay/bosphorus_pay/internal/wallet"
)

type seedUser struct {
	username string
	name     string
	surname  string
	password string
	role     identity.Role
	wallets  []seedWallet
}

type seedWallet struct {
	name     string
	currency string
	shopping bool
	withdraw bool
	opening  string
}

var seedData = []seedUser{
	{
		username: "ops.admin", name: "Aylin", surname: "Demir",
		password: "admin123", role: identity.RoleEmployee,
	},
	{
		username: "kerem", name: "Kerem", surname: "Yilmaz",
		password: "kerem123", role: identity.RoleCustomer,
		wallets: []seedWallet{
			{name: "Daily Spending", currency: "TRY", shopping: true, withdraw: true, opening: "750.00"},
			{name: "Travel Fund", currency: "EUR", shopping: false, withdraw: true, opening: "300.00"},
		},
	},
	{
		username: "elif", name: "Elif", surname: "Kaya",
		password: "elif1234", role: identity.RoleCustomer,
		wallets: []seedWallet{
			{name: "Salary", currency: "TRY", shopping: true, withdraw: true, opening: "2500.00"},
			{name: "Savings", currency: "USD", shopping: false, withdraw: false, opening: "900.00"},
		},
	},
	{
		username: "murat", name: "Murat", surname: "Aksoy",
		password: "murat123", role: identity.RoleCustomer,
		wallets: []seedWallet{
			{name: "Shopping", currency: "TRY", shopping: true, withdraw: false, opening: "120.00"},
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL must be set")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsDev())
	ctx := context.Background()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	users := identity.NewPostgresRepository(db)
	identitySvc := identity.NewService(users)
	store := wallet.NewPostgresStore(db, cfg.LockTimeout)
	walletSvc := wallet.NewService(store, cfg.PendingThreshold, wallet.NoopMetrics{}, logger)

	for _, su := range seedData {
		if _, err := users.FindByUsername(ctx, su.username); err == nil {
			logger.Info("user already seeded", "username", su.username)
			continue
		} else if !errors.Is(err, identity.ErrUserNotFound) {
			logger.Error("lookup user", "username", su.username, "error", err)
			os.Exit(1)
		}

		user, err := identitySvc.Register(ctx, identity.RegisterInput{
			Username: su.username,
			Name:     su.name,
			Surname:  su.surname,
			Password: su.password,
			Role:     su.role,
		})
		if err != nil {
			logger.Error("register user", "username", su.username, "error", err)
			os.Exit(1)
		}
		logger.Info("user seeded", "username", user.Username, "role", user.Role)

		for _, sw := range su.wallets {
			w, err := walletSvc.Create(ctx, wallet.CreateInput{
				CustomerID:        user.ID,
				Name:              sw.name,
				Currency:          sw.currency,
				ActiveForShopping: sw.shopping,
				ActiveForWithdraw: sw.withdraw,
			})
			if err != nil {
				logger.Error("create wallet", "wallet", sw.name, "error", err)
				os.Exit(1)
			}

			opening, err := decimal.NewFromString(sw.opening)
			if err != nil {
				logger.Error("parse opening balance", "wallet", sw.name, "error", err)
				os.Exit(1)
			}
			if _, err := walletSvc.Deposit(ctx, wallet.DepositInput{
				WalletID: w.ID,
				Amount:   opening,
				Source:   "SEED-OPENING-BALANCE",
			}); err != nil {
				logger.Error("opening deposit", "wallet", sw.name, "error", err)
				os.Exit(1)
			}
			logger.Info("wallet seeded", "wallet", w.Name, "currency", w.Currency, "opening", sw.opening)
		}
	}

	logger.Info("seed complete")
}
