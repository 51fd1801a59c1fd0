package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bosphorus-pay/bosphorus_pay/internal/wallet"
)

// RegisterWalletRoutes wires the wallet and transaction endpoints. The idem
// middleware guards the money-moving operations against client retries.
func RegisterWalletRoutes(api fiber.Router, h *wallet.Handler, idem fiber.Handler) {
	api.Post("/customers/:customerId/wallets", h.Create)
	api.Get("/customers/:customerId/wallets", h.List)

	api.Get("/wallets/:walletId", h.Get)
	api.Get("/wallets/:walletId/transactions", h.ListTransactions)
	api.Post("/wallets/deposit", idem, h.Deposit)
	api.Post("/wallets/withdraw", idem, h.Withdraw)

	api.Get("/transactions/:transactionId", h.GetTransaction)
	api.Post("/transactions/approve", idem, h.Approve)
}
