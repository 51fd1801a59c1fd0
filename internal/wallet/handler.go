package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/shopspring/decimal"

	"github.com/bosphorus-pay/bosphorus_pay/internal/auth"
	"github.com/bosphorus-pay/bosphorus_pay/internal/authz"
)

// Handler exposes wallet and transaction HTTP endpoints. Every mutating
// endpoint passes the access guard before reaching the services.
type Handler struct {
	service   *Service
	approvals *Approvals
	guard     *authz.Guard
}

// NewHandler builds the wallet HTTP handler.
func NewHandler(service *Service, approvals *Approvals, guard *authz.Guard) *Handler {
	return &Handler{service: service, approvals: approvals, guard: guard}
}

type walletResponse struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customer_id"`
	Name              string    `json:"wallet_name"`
	Currency          string    `json:"currency"`
	ActiveForShopping bool      `json:"active_for_shopping"`
	ActiveForWithdraw bool      `json:"active_for_withdraw"`
	Balance           string    `json:"balance"`
	UsableBalance     string    `json:"usable_balance"`
	CreatedAt         time.Time `json:"created_at"`
}

type transactionResponse struct {
	ID                string    `json:"id"`
	WalletID          string    `json:"wallet_id"`
	Amount            string    `json:"amount"`
	Type              string    `json:"type"`
	OppositePartyType string    `json:"opposite_party_type"`
	OppositeParty     string    `json:"opposite_party"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toWalletResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:                w.ID,
		CustomerID:        w.CustomerID,
		Name:              w.Name,
		Currency:          string(w.Currency),
		ActiveForShopping: w.ActiveForShopping,
		ActiveForWithdraw: w.ActiveForWithdraw,
		Balance:           w.Balance.StringFixed(2),
		UsableBalance:     w.UsableBalance.StringFixed(2),
		CreatedAt:         w.CreatedAt,
	}
}

func toTransactionResponse(txn Transaction) transactionResponse {
	return transactionResponse{
		ID:                txn.ID,
		WalletID:          txn.WalletID,
		Amount:            txn.Amount.StringFixed(2),
		Type:              string(txn.Type),
		OppositePartyType: string(txn.OppositePartyType),
		OppositeParty:     txn.OppositeParty,
		Status:            string(txn.Status),
		CreatedAt:         txn.CreatedAt,
		UpdatedAt:         txn.UpdatedAt,
	}
}

type createWalletRequest struct {
	Name              string `json:"wallet_name"`
	Currency          string `json:"currency"`
	ActiveForShopping bool   `json:"active_for_shopping"`
	ActiveForWithdraw bool   `json:"active_for_withdraw"`
}

// Create provisions a wallet for a customer. Employee only.
func (h *Handler) Create(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok || !ident.IsEmployee() {
		return errForbidden()
	}

	var req createWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	// c.Params returns a string backed by fiber's reusable request buffer;
	// it must be copied before being retained past this request.
	w, err := h.service.Create(c.UserContext(), CreateInput{
		CustomerID:        utils.CopyString(c.Params("customerId")),
		Name:              req.Name,
		Currency:          req.Currency,
		ActiveForShopping: req.ActiveForShopping,
		ActiveForWithdraw: req.ActiveForWithdraw,
	})
	if err != nil {
		return businessError(err)
	}
	return c.Status(http.StatusCreated).JSON(toWalletResponse(w))
}

// List returns a customer's wallets, optionally filtered by ?currency=.
func (h *Handler) List(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	customerID := c.Params("customerId")
	if !ok || !h.guard.CanActOnCustomer(ident, customerID) {
		return errForbidden()
	}

	wallets, err := h.service.List(c.UserContext(), customerID, c.Query("currency"))
	if err != nil {
		return businessError(err)
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toWalletResponse(w))
	}
	return c.JSON(out)
}

// Get returns a single wallet.
func (h *Handler) Get(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	if err := h.requireWalletAccess(c, walletID); err != nil {
		return err
	}
	w, err := h.service.Get(c.UserContext(), walletID)
	if err != nil {
		return businessError(err)
	}
	return c.JSON(toWalletResponse(w))
}

type depositRequest struct {
	WalletID string `json:"wallet_id"`
	Amount   string `json:"amount"`
	Source   string `json:"source"`
}

// Deposit credits a wallet from an external source.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.requireWalletAccess(c, req.WalletID); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return businessError(err)
	}
	txn, err := h.service.Deposit(c.UserContext(), DepositInput{
		WalletID: req.WalletID,
		Amount:   amount,
		Source:   req.Source,
	})
	if err != nil {
		return businessError(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(txn))
}

type withdrawRequest struct {
	WalletID    string `json:"wallet_id"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
}

// Withdraw debits a wallet to an external destination.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.requireWalletAccess(c, req.WalletID); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return businessError(err)
	}
	txn, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		WalletID:    req.WalletID,
		Amount:      amount,
		Destination: req.Destination,
	})
	if err != nil {
		return businessError(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(txn))
}

// ListTransactions returns a wallet's transactions, newest first.
func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	if err := h.requireWalletAccess(c, walletID); err != nil {
		return err
	}
	txns, err := h.approvals.List(c.UserContext(), walletID)
	if err != nil {
		return businessError(err)
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, toTransactionResponse(txn))
	}
	return c.JSON(out)
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(c *fiber.Ctx) error {
	txn, err := h.approvals.Get(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return businessError(err)
	}
	if err := h.requireWalletAccess(c, txn.WalletID); err != nil {
		return err
	}
	return c.JSON(toTransactionResponse(txn))
}

type approveRequest struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Approve settles a pending transaction. Employee only.
func (h *Handler) Approve(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok || !ident.IsEmployee() {
		return errForbidden()
	}

	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	txn, err := h.approvals.Settle(c.UserContext(), req.TransactionID, req.Status)
	if err != nil {
		return businessError(err)
	}
	return c.JSON(toTransactionResponse(txn))
}

func (h *Handler) requireWalletAccess(c *fiber.Ctx, walletID string) error {
	ident, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	allowed, err := h.guard.CanActOnWallet(c.UserContext(), ident, walletID)
	if err != nil {
		return err
	}
	if !allowed {
		return errForbidden()
	}
	return nil
}

func errForbidden() error {
	return fiber.NewError(http.StatusForbidden, "you do not have permission to access this resource")
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return amount, nil
}

// businessError maps domain errors onto HTTP statuses with stable error
// codes. Unknown errors bubble up to the generic 500 handler.
func businessError(err error) error {
	var insufficient *InsufficientBalanceError
	var notActive *WalletNotActiveError

	switch {
	case errors.Is(err, ErrWalletNotFound):
		return newAPIError(http.StatusNotFound, "WALLET_NOT_FOUND", err)
	case errors.Is(err, ErrTransactionNotFound):
		return newAPIError(http.StatusNotFound, "TRANSACTION_NOT_FOUND", err)
	case errors.Is(err, ErrTransactionNotPending):
		return newAPIError(http.StatusConflict, "TRANSACTION_NOT_PENDING", err)
	case errors.As(err, &insufficient):
		return newAPIError(http.StatusBadRequest, "INSUFFICIENT_BALANCE", err)
	case errors.As(err, &notActive):
		return newAPIError(http.StatusBadRequest, "WALLET_NOT_ACTIVE", err)
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidCurrency):
		return newAPIError(http.StatusBadRequest, "INVALID_ARGUMENT", err)
	default:
		return err
	}
}

// APIError is a business error with a machine-readable code, rendered by the
// fiber error handler.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Message }

func newAPIError(status int, code string, err error) *APIError {
	return &APIError{Status: status, Code: code, Message: err.Error()}
}
