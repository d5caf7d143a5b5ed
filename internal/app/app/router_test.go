package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniwallet/internal/app/logger"
	"miniwallet/internal/app/service/ledger"
	"miniwallet/internal/app/session"
	"miniwallet/internal/app/storage/memory"
)

func newTestApp() *App {
	customers := memory.NewCustomerRepository()
	wallets := memory.NewStore()
	sm := session.NewTokenManager(customers)

	return &App{
		logger:    logger.New(false, false),
		customers: customers,
		wallets:   wallets,
		session:   sm,
		ledger:    ledger.New(customers, wallets, sm),
		stopCh:    make(chan struct{}),
	}
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())

	return rec, env
}

func initWallet(t *testing.T, h http.Handler) string {
	t.Helper()

	rec, env := doRequest(t, h, http.MethodPost, "/api/v1/init", "", map[string]string{
		"customer_xid": uuid.New().String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "success", env.Status)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)

	return data.Token
}

func enableWallet(t *testing.T, h http.Handler, token string) {
	t.Helper()

	rec, env := doRequest(t, h, http.MethodPost, "/api/v1/wallet", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "success", env.Status)
}

type walletData struct {
	Wallet struct {
		ID      uuid.UUID       `json:"id"`
		OwnedBy uuid.UUID       `json:"owned_by"`
		Status  string          `json:"status"`
		Balance decimal.Decimal `json:"balance"`
	} `json:"wallet"`
}

func TestInitIssuesStableToken(t *testing.T) {
	h := newTestApp().Router()
	xid := uuid.New().String()

	body := map[string]string{"customer_xid": xid}

	_, env1 := doRequest(t, h, http.MethodPost, "/api/v1/init", "", body)
	_, env2 := doRequest(t, h, http.MethodPost, "/api/v1/init", "", body)

	assert.JSONEq(t, string(env1.Data), string(env2.Data))
}

func TestInitValidatesXID(t *testing.T) {
	h := newTestApp().Router()

	rec, env := doRequest(t, h, http.MethodPost, "/api/v1/init", "", map[string]string{
		"customer_xid": "not-a-uuid",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fail", env.Status)
}

func TestAuthRequired(t *testing.T) {
	h := newTestApp().Router()

	rec, env := doRequest(t, h, http.MethodPost, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", env.Status)

	rec, _ = doRequest(t, h, http.MethodGet, "/api/v1/wallet", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWalletLifecycle(t *testing.T) {
	h := newTestApp().Router()
	token := initWallet(t, h)

	// A fresh wallet is disabled, viewing it is not allowed.
	rec, env := doRequest(t, h, http.MethodGet, "/api/v1/wallet", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "fail", env.Status)

	enableWallet(t, h, token)

	rec, env = doRequest(t, h, http.MethodGet, "/api/v1/wallet", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var wd walletData
	require.NoError(t, json.Unmarshal(env.Data, &wd))
	assert.Equal(t, "enabled", wd.Wallet.Status)
	assert.True(t, wd.Wallet.Balance.IsZero())

	// Enabling twice fails.
	rec, env = doRequest(t, h, http.MethodPost, "/api/v1/wallet", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "already_enabled")

	// Disable, then the gate closes again.
	rec, _ = doRequest(t, h, http.MethodPatch, "/api/v1/wallet", token, map[string]bool{"is_disabled": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, h, http.MethodGet, "/api/v1/wallet", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisableWithoutConfirmation(t *testing.T) {
	h := newTestApp().Router()
	token := initWallet(t, h)
	enableWallet(t, h, token)

	rec, env := doRequest(t, h, http.MethodPatch, "/api/v1/wallet", token, map[string]bool{"is_disabled": false})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "confirmation_required")
}

func TestDepositAndWithdraw(t *testing.T) {
	h := newTestApp().Router()
	token := initWallet(t, h)
	enableWallet(t, h, token)

	r1, r2 := uuid.New().String(), uuid.New().String()

	rec, env := doRequest(t, h, http.MethodPost, "/api/v1/wallet/deposits", token, map[string]interface{}{
		"amount": 50000, "reference_id": r1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var dep struct {
		Deposit struct {
			Status      string          `json:"status"`
			Amount      decimal.Decimal `json:"amount"`
			ReferenceID uuid.UUID       `json:"reference_id"`
		} `json:"deposit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dep))
	assert.Equal(t, "success", dep.Deposit.Status)
	assert.True(t, dep.Deposit.Amount.Equal(decimal.NewFromInt(50000)))

	rec, env = doRequest(t, h, http.MethodPost, "/api/v1/wallet/withdrawals", token, map[string]interface{}{
		"amount": 20000, "reference_id": r2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var wit struct {
		Withdrawal struct {
			Amount decimal.Decimal `json:"amount"`
		} `json:"withdrawal"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &wit))
	// The view exposes the magnitude, not the signed ledger amount.
	assert.True(t, wit.Withdrawal.Amount.Equal(decimal.NewFromInt(20000)))

	rec, env = doRequest(t, h, http.MethodGet, "/api/v1/wallet", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var wd walletData
	require.NoError(t, json.Unmarshal(env.Data, &wd))
	assert.True(t, wd.Wallet.Balance.Equal(decimal.NewFromInt(30000)))

	rec, env = doRequest(t, h, http.MethodGet, "/api/v1/wallet/transactions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Transactions []struct {
			Type        string          `json:"transaction_type"`
			Amount      decimal.Decimal `json:"amount"`
			ReferenceID uuid.UUID       `json:"reference_id"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, "withdraw", list.Transactions[0].Type)
	assert.Equal(t, r2, list.Transactions[0].ReferenceID.String())
	assert.Equal(t, "deposit", list.Transactions[1].Type)
	assert.Equal(t, r1, list.Transactions[1].ReferenceID.String())
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	h := newTestApp().Router()
	token := initWallet(t, h)
	enableWallet(t, h, token)

	rec, env := doRequest(t, h, http.MethodPost, "/api/v1/wallet/withdrawals", token, map[string]interface{}{
		"amount": 100, "reference_id": uuid.New().String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "insufficient_funds")
}

func TestDepositDuplicateReference(t *testing.T) {
	h := newTestApp().Router()
	token := initWallet(t, h)
	enableWallet(t, h, token)

	body := map[string]interface{}{"amount": 10, "reference_id": uuid.New().String()}

	rec, _ := doRequest(t, h, http.MethodPost, "/api/v1/wallet/deposits", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doRequest(t, h, http.MethodPost, "/api/v1/wallet/deposits", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "duplicate_reference")
}

func TestTransactionsGateOnDisabledWallet(t *testing.T) {
	h := newTestApp().Router()
	token := initWallet(t, h)

	for _, tc := range []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, "/api/v1/wallet/transactions", nil},
		{http.MethodPost, "/api/v1/wallet/deposits", map[string]interface{}{"amount": 10, "reference_id": uuid.New().String()}},
		{http.MethodPost, "/api/v1/wallet/withdrawals", map[string]interface{}{"amount": 10, "reference_id": uuid.New().String()}},
	} {
		t.Run(fmt.Sprintf("%s %s", tc.method, tc.path), func(t *testing.T) {
			rec, env := doRequest(t, h, tc.method, tc.path, token, tc.body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, string(env.Data), "wallet_disabled")
		})
	}
}
