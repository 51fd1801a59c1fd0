package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bosphorus-pay/bosphorus_pay/internal/logging"
)

const testIBAN = "TR330006100519786457841326"

func newTestService(t *testing.T, threshold string) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc := NewService(store, dec(t, threshold), NoopMetrics{}, logging.Discard())
	return svc, store
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func newTestWallet(t *testing.T, svc *Service, shopping, withdraw bool) Wallet {
	t.Helper()
	w, err := svc.Create(context.Background(), CreateInput{
		CustomerID:        "cust-1",
		Name:              "Main",
		Currency:          "TRY",
		ActiveForShopping: shopping,
		ActiveForWithdraw: withdraw,
	})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func mustDeposit(t *testing.T, svc *Service, walletID, amount string) Transaction {
	t.Helper()
	txn, err := svc.Deposit(context.Background(), DepositInput{
		WalletID: walletID,
		Amount:   dec(t, amount),
		Source:   "PAY-REF-1",
	})
	if err != nil {
		t.Fatalf("deposit %s: %v", amount, err)
	}
	return txn
}

func balances(t *testing.T, svc *Service, walletID string) (string, string) {
	t.Helper()
	w, err := svc.Get(context.Background(), walletID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w.Balance.StringFixed(2), w.UsableBalance.StringFixed(2)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{CustomerID: "c", Name: "w", Currency: "GBP"}); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "w", Currency: "TRY"}); err == nil {
		t.Fatal("expected error for missing customer id")
	}
	if _, err := svc.Create(ctx, CreateInput{CustomerID: "c", Currency: "TRY"}); err == nil {
		t.Fatal("expected error for missing wallet name")
	}
}

func TestDepositBelowThresholdApproves(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)

	txn := mustDeposit(t, svc, w.ID, "500")
	if txn.Status != StatusApproved {
		t.Fatalf("status = %s, want APPROVED", txn.Status)
	}
	if txn.Type != TypeDeposit {
		t.Fatalf("type = %s, want DEPOSIT", txn.Type)
	}

	balance, usable := balances(t, svc, w.ID)
	if balance != "500.00" || usable != "500.00" {
		t.Fatalf("balances = %s/%s, want 500.00/500.00", balance, usable)
	}
}

func TestDepositAboveThresholdPends(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)

	txn := mustDeposit(t, svc, w.ID, "1500")
	if txn.Status != StatusPending {
		t.Fatalf("status = %s, want PENDING", txn.Status)
	}

	balance, usable := balances(t, svc, w.ID)
	if balance != "1500.00" || usable != "0.00" {
		t.Fatalf("balances = %s/%s, want 1500.00/0.00", balance, usable)
	}
}

func TestDepositExactlyAtThresholdApproves(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)

	txn := mustDeposit(t, svc, w.ID, "1000")
	if txn.Status != StatusApproved {
		t.Fatalf("status = %s, want APPROVED (threshold is exclusive)", txn.Status)
	}
}

func TestDepositIgnoresCapabilityFlags(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, false, false)

	if _, err := svc.Deposit(context.Background(), DepositInput{
		WalletID: w.ID, Amount: dec(t, "100"), Source: "PAY-REF-1",
	}); err != nil {
		t.Fatalf("deposit into inactive wallet should succeed, got %v", err)
	}
}

func TestDepositUnknownWallet(t *testing.T) {
	svc, _ := newTestService(t, "1000")

	_, err := svc.Deposit(context.Background(), DepositInput{
		WalletID: "missing", Amount: dec(t, "100"), Source: "PAY-REF-1",
	})
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestAmountValidation(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)
	ctx := context.Background()

	for _, amount := range []string{"0", "-5", "10.123"} {
		if _, err := svc.Deposit(ctx, DepositInput{
			WalletID: w.ID, Amount: dec(t, amount), Source: "PAY-REF-1",
		}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("deposit %s: expected ErrInvalidAmount, got %v", amount, err)
		}
		if _, err := svc.Withdraw(ctx, WithdrawInput{
			WalletID: w.ID, Amount: dec(t, amount), Destination: testIBAN,
		}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("withdraw %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	// Trailing zeros beyond two places are still two decimal places.
	if _, err := svc.Deposit(ctx, DepositInput{
		WalletID: w.ID, Amount: dec(t, "10.100"), Source: "PAY-REF-1",
	}); err != nil {
		t.Fatalf("deposit 10.100 should be valid, got %v", err)
	}

	balance, _ := balances(t, svc, w.ID)
	if balance != "10.10" {
		t.Fatalf("rejected amounts must not mutate balances, balance = %s", balance)
	}
}

func TestWithdrawToIBANRequiresWithdrawCapability(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, false)
	mustDeposit(t, svc, w.ID, "500")

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: dec(t, "100"), Destination: testIBAN,
	})
	var notActive *WalletNotActiveError
	if !errors.As(err, &notActive) || notActive.Capability != "withdraw" {
		t.Fatalf("expected WalletNotActiveError{withdraw}, got %v", err)
	}

	balance, usable := balances(t, svc, w.ID)
	if balance != "500.00" || usable != "500.00" {
		t.Fatalf("blocked withdraw must not mutate balances, got %s/%s", balance, usable)
	}
}

func TestWithdrawToPaymentRequiresShoppingCapability(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, false, true)
	mustDeposit(t, svc, w.ID, "500")

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: dec(t, "100"), Destination: "MERCHANT-42",
	})
	var notActive *WalletNotActiveError
	if !errors.As(err, &notActive) || notActive.Capability != "shopping" {
		t.Fatalf("expected WalletNotActiveError{shopping}, got %v", err)
	}
}

func TestWithdrawInsufficientUsableBalance(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)
	mustDeposit(t, svc, w.ID, "100")

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: dec(t, "150"), Destination: testIBAN,
	})
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if insufficient.Available.StringFixed(2) != "100.00" {
		t.Fatalf("available = %s, want 100.00", insufficient.Available.StringFixed(2))
	}
}

func TestWithdrawChecksUsableNotTotal(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)
	// Total balance 1500, but the pending deposit keeps usable at 0.
	mustDeposit(t, svc, w.ID, "1500")

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: dec(t, "100"), Destination: testIBAN,
	})
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError against usable balance, got %v", err)
	}
}

func TestWithdrawApprovedMovesBothBalances(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)
	mustDeposit(t, svc, w.ID, "500")

	txn, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: dec(t, "200"), Destination: testIBAN,
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if txn.Status != StatusApproved {
		t.Fatalf("status = %s, want APPROVED", txn.Status)
	}
	if txn.OppositePartyType != PartyIBAN {
		t.Fatalf("party type = %s, want IBAN", txn.OppositePartyType)
	}

	balance, usable := balances(t, svc, w.ID)
	if balance != "300.00" || usable != "300.00" {
		t.Fatalf("balances = %s/%s, want 300.00/300.00", balance, usable)
	}
}

func TestWithdrawPendingReservesUsableOnly(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)
	mustDeposit(t, svc, w.ID, "1000")
	mustDeposit(t, svc, w.ID, "1000")

	txn, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: dec(t, "1200"), Destination: testIBAN,
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if txn.Status != StatusPending {
		t.Fatalf("status = %s, want PENDING", txn.Status)
	}

	balance, usable := balances(t, svc, w.ID)
	if balance != "2000.00" || usable != "800.00" {
		t.Fatalf("balances = %s/%s, want 2000.00/800.00", balance, usable)
	}
}

func TestWalletBelongsTo(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	w := newTestWallet(t, svc, true, true)
	ctx := context.Background()

	ok, err := svc.WalletBelongsTo(ctx, w.ID, "cust-1")
	if err != nil || !ok {
		t.Fatalf("WalletBelongsTo(owner) = %v, %v, want true", ok, err)
	}
	ok, err = svc.WalletBelongsTo(ctx, w.ID, "cust-2")
	if err != nil || ok {
		t.Fatalf("WalletBelongsTo(stranger) = %v, %v, want false", ok, err)
	}
	ok, err = svc.WalletBelongsTo(ctx, "missing", "cust-1")
	if err != nil || ok {
		t.Fatalf("WalletBelongsTo(missing wallet) = %v, %v, want false", ok, err)
	}
}

func TestListFiltersByCurrency(t *testing.T) {
	svc, _ := newTestService(t, "1000")
	ctx := context.Background()

	for _, cur := range []string{"TRY", "USD", "TRY"} {
		if _, err := svc.Create(ctx, CreateInput{
			CustomerID: "cust-1", Name: "w-" + cur, Currency: cur,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := svc.List(ctx, "cust-1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}

	try, err := svc.List(ctx, "cust-1", "TRY")
	if err != nil {
		t.Fatalf("list TRY: %v", err)
	}
	if len(try) != 2 {
		t.Fatalf("len(TRY) = %d, want 2", len(try))
	}

	if _, err := svc.List(ctx, "cust-1", "GBP"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

// Concurrent withdrawals against one wallet must serialize: with usable
// funds covering only a subset of the requests, exactly that subset may
// succeed and the usable balance can never go negative.
func TestConcurrentWithdrawalsNeverOversell(t *testing.T) {
	svc, _ := newTestService(t, "100000")
	w := newTestWallet(t, svc, true, true)
	mustDeposit(t, svc, w.ID, "1000")

	const workers = 20
	withdrawAmount := dec(t, "100")

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Withdraw(context.Background(), WithdrawInput{
				WalletID:    w.ID,
				Amount:      withdrawAmount,
				Destination: testIBAN,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *InsufficientBalanceError
		if !errors.As(err, &insufficient) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 10 {
		t.Fatalf("%d withdrawals succeeded, want exactly 10", succeeded)
	}

	balance, usable := balances(t, svc, w.ID)
	if balance != "0.00" || usable != "0.00" {
		t.Fatalf("balances = %s/%s, want 0.00/0.00", balance, usable)
	}
}
