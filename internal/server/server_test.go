package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bosphorus-pay/bosphorus_pay/internal/config"
	"github.com/bosphorus-pay/bosphorus_pay/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	threshold, err := decimal.NewFromString("1000")
	if err != nil {
		t.Fatalf("parse threshold: %v", err)
	}
	return config.Config{
		AppName:          "test",
		AppEnv:           "development",
		Port:             "0",
		LogLevel:         "error",
		JWTSecret:        "test-access-secret",
		RefreshSecret:    "test-refresh-secret",
		AccessTokenTTL:   time.Minute,
		RefreshTokenTTL:  time.Hour,
		PendingThreshold: threshold,
		ShutdownPeriod:   time.Second,
		IdempotencyTTL:   time.Minute,
		LockTimeout:      time.Second,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(testConfig(t), nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 && json.Valid(raw) && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func login(t *testing.T, srv *Server, username, password string) (token, customerID string) {
	t.Helper()
	status, body := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d", username, status)
	}
	token, _ = body["access_token"].(string)
	customerID, _ = body["customer_id"].(string)
	if token == "" {
		t.Fatalf("login %s: no access token in %v", username, body)
	}
	return token, customerID
}

func TestHealthAndPing(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK {
		t.Fatalf("healthz status = %d", status)
	}
	status, body := doJSON(t, srv, http.MethodGet, "/api/v1/ping", "", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("ping status = %d body = %v", status, body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodGet, "/api/v1/auth/me", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("me without token: status = %d, want 401", status)
	}
	status, _ = doJSON(t, srv, http.MethodGet, "/api/v1/wallets/some-id", "garbage-token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", status)
	}
}

func TestWalletLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	adminToken, _ := login(t, srv, "admin", "admin123")
	demoToken, demoCustomer := login(t, srv, "demo", "demo1234")
	if demoCustomer == "" {
		t.Fatal("demo login returned no customer id")
	}

	// Customers cannot provision wallets.
	status, _ := doJSON(t, srv, http.MethodPost, "/api/v1/customers/"+demoCustomer+"/wallets", demoToken, map[string]any{
		"wallet_name": "Main", "currency": "TRY",
	})
	if status != http.StatusForbidden {
		t.Fatalf("customer wallet create: status = %d, want 403", status)
	}

	status, wallet := doJSON(t, srv, http.MethodPost, "/api/v1/customers/"+demoCustomer+"/wallets", adminToken, map[string]any{
		"wallet_name":         "Main",
		"currency":            "TRY",
		"active_for_shopping": true,
		"active_for_withdraw": true,
	})
	if status != http.StatusCreated {
		t.Fatalf("wallet create: status = %d body = %v", status, wallet)
	}
	walletID, _ := wallet["id"].(string)
	if walletID == "" {
		t.Fatal("no wallet id in create response")
	}

	status, txn := doJSON(t, srv, http.MethodPost, "/api/v1/wallets/deposit", demoToken, map[string]any{
		"wallet_id": walletID, "amount": "500", "source": "PAY-REF-1",
	})
	if status != http.StatusCreated || txn["status"] != "APPROVED" {
		t.Fatalf("deposit: status = %d body = %v", status, txn)
	}

	status, errBody := doJSON(t, srv, http.MethodPost, "/api/v1/wallets/withdraw", demoToken, map[string]any{
		"wallet_id": walletID, "amount": "2000", "destination": "TR330006100519786457841326",
	})
	if status != http.StatusBadRequest || errBody["error"] != "INSUFFICIENT_BALANCE" {
		t.Fatalf("overdraw: status = %d body = %v", status, errBody)
	}

	status, pending := doJSON(t, srv, http.MethodPost, "/api/v1/wallets/deposit", demoToken, map[string]any{
		"wallet_id": walletID, "amount": "1500", "source": "PAY-REF-2",
	})
	if status != http.StatusCreated || pending["status"] != "PENDING" {
		t.Fatalf("large deposit: status = %d body = %v", status, pending)
	}
	pendingID, _ := pending["id"].(string)

	// Customers cannot settle transactions.
	status, _ = doJSON(t, srv, http.MethodPost, "/api/v1/transactions/approve", demoToken, map[string]any{
		"transaction_id": pendingID, "status": "APPROVED",
	})
	if status != http.StatusForbidden {
		t.Fatalf("customer approve: status = %d, want 403", status)
	}

	status, settled := doJSON(t, srv, http.MethodPost, "/api/v1/transactions/approve", adminToken, map[string]any{
		"transaction_id": pendingID, "status": "APPROVED",
	})
	if status != http.StatusOK || settled["status"] != "APPROVED" {
		t.Fatalf("approve: status = %d body = %v", status, settled)
	}

	status, w := doJSON(t, srv, http.MethodGet, "/api/v1/wallets/"+walletID, demoToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get wallet: status = %d", status)
	}
	if w["balance"] != "2000.00" || w["usable_balance"] != "2000.00" {
		t.Fatalf("balances = %v/%v, want 2000.00/2000.00", w["balance"], w["usable_balance"])
	}

	status, _ = doJSON(t, srv, http.MethodPost, "/api/v1/transactions/approve", adminToken, map[string]any{
		"transaction_id": pendingID, "status": "DENIED",
	})
	if status != http.StatusConflict {
		t.Fatalf("re-settle: status = %d, want 409", status)
	}
}

func TestWalletAccessIsScopedToOwner(t *testing.T) {
	srv := newTestServer(t)

	adminToken, _ := login(t, srv, "admin", "admin123")
	demoToken, _ := login(t, srv, "demo", "demo1234")

	// A wallet owned by a different customer.
	status, wallet := doJSON(t, srv, http.MethodPost, "/api/v1/customers/other-customer/wallets", adminToken, map[string]any{
		"wallet_name": "Other", "currency": "USD",
	})
	if status != http.StatusCreated {
		t.Fatalf("wallet create: status = %d", status)
	}
	walletID, _ := wallet["id"].(string)

	status, _ = doJSON(t, srv, http.MethodGet, "/api/v1/wallets/"+walletID, demoToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("foreign wallet read: status = %d, want 403", status)
	}
	status, _ = doJSON(t, srv, http.MethodPost, "/api/v1/wallets/deposit", demoToken, map[string]any{
		"wallet_id": walletID, "amount": "10", "source": "PAY-REF",
	})
	if status != http.StatusForbidden {
		t.Fatalf("foreign wallet deposit: status = %d, want 403", status)
	}

	// Employees see everything.
	status, _ = doJSON(t, srv, http.MethodGet, "/api/v1/wallets/"+walletID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("employee wallet read: status = %d, want 200", status)
	}
}

func TestUnknownWalletReturns404(t *testing.T) {
	srv := newTestServer(t)
	adminToken, _ := login(t, srv, "admin", "admin123")

	status, body := doJSON(t, srv, http.MethodGet, "/api/v1/wallets/nonexistent", adminToken, nil)
	if status != http.StatusNotFound || body["error"] != "WALLET_NOT_FOUND" {
		t.Fatalf("status = %d body = %v, want 404 WALLET_NOT_FOUND", status, body)
	}
}
