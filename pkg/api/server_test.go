package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
	"github.com/uhyunpark/hyperdex/pkg/app/core/matching"
	"github.com/uhyunpark/hyperdex/pkg/app/dex"
)

const (
	alice = "0x00000000000000000000000000000000000000a1"
	bob   = "0x00000000000000000000000000000000000000b2"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	metrics := dex.NewMetrics()
	app := dex.NewApp(matching.NewEngine(matching.Config{}), metrics, zap.NewNop())
	srv := NewServer(app, metrics, Options{}, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOrderFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/deposit", BalanceChangeRequest{Account: alice, Asset: "u32:1", Amount: "100"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bal BalanceResponse
	decode(t, resp, &bal)
	assert.Equal(t, "100", bal.Balance.String())

	resp = post(t, ts, "/api/v1/deposit", BalanceChangeRequest{Account: bob, Asset: "2", Amount: "5"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, ts, "/api/v1/orders", MakeOrderRequest{
		Owner:           alice,
		OfferedAsset:    "u32:1",
		RequestedAsset:  "u32:2",
		OfferedAmount:   "100",
		RequestedAmount: "5",
		Type:            "SELL",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var made MakeOrderResponse
	decode(t, resp, &made)
	assert.Equal(t, uint64(0), made.OrderID)
	assert.Equal(t, "/api/v1/orders/0", resp.Header.Get("Location"))

	resp = get(t, ts, "/api/v1/pairs/u32:1/u32:2/orders")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orders []dex.Order
	decode(t, resp, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, "100", orders[0].OfferedAmount.String())

	resp = get(t, ts, "/api/v1/accounts/"+alice+"/orders/0")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// owner cannot take own order
	resp = post(t, ts, "/api/v1/orders/0/take", OrderActionRequest{Account: alice})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post(t, ts, "/api/v1/orders/0/take", OrderActionRequest{Account: bob})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status StatusResponse
	decode(t, resp, &status)
	assert.Equal(t, "taken", status.Status)

	resp = get(t, ts, "/api/v1/accounts/"+bob+"/balances/u32:1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &bal)
	assert.Equal(t, "100", bal.Balance.String())

	resp = get(t, ts, "/api/v1/orders/0")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errResp ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, "not_found", errResp.Error)

	resp = get(t, ts, "/api/v1/state/hash")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hash StateHashResponse
	decode(t, resp, &hash)
	assert.True(t, strings.HasPrefix(hash.Hash, "0x"))
	assert.Equal(t, 0, hash.OpenOrders)
}

func TestCancelByStrangerIsForbidden(t *testing.T) {
	ts := newTestServer(t)

	post(t, ts, "/api/v1/deposit", BalanceChangeRequest{Account: alice, Asset: "1", Amount: "10"})
	resp := post(t, ts, "/api/v1/orders", MakeOrderRequest{
		Owner: alice, OfferedAsset: "1", RequestedAsset: "2",
		OfferedAmount: "10", RequestedAmount: "1", Type: "BUY",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post(t, ts, "/api/v1/orders/0/cancel", OrderActionRequest{Account: bob})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = post(t, ts, "/api/v1/orders/0/cancel", OrderActionRequest{Account: alice})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		kind   string
	}{
		{"bad address", "/api/v1/deposit", BalanceChangeRequest{Account: "nope", Asset: "1", Amount: "1"}, http.StatusBadRequest, "invalid_request"},
		{"bad amount", "/api/v1/deposit", BalanceChangeRequest{Account: alice, Asset: "1", Amount: "-1"}, http.StatusBadRequest, "invalid_amount"},
		{"zero amount", "/api/v1/deposit", BalanceChangeRequest{Account: alice, Asset: "1", Amount: "0"}, http.StatusBadRequest, "invalid_amount"},
		{"unsupported id", "/api/v1/deposit", BalanceChangeRequest{Account: alice, Asset: "u8:1", Amount: "1"}, http.StatusBadRequest, "unsupported_identifier"},
		{"overdraw", "/api/v1/withdraw", BalanceChangeRequest{Account: alice, Asset: "1", Amount: "1"}, http.StatusConflict, "insufficient_balance"},
		{"same pair", "/api/v1/orders", MakeOrderRequest{
			Owner: alice, OfferedAsset: "1", RequestedAsset: "1",
			OfferedAmount: "1", RequestedAmount: "1", Type: "BUY",
		}, http.StatusBadRequest, "invalid_pair"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var errResp ErrorResponse
			decode(t, resp, &errResp)
			assert.Equal(t, tt.kind, errResp.Error)
		})
	}
}

func TestIndexOutOfRange(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/api/v1/accounts/"+alice+"/tokens/0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	post(t, ts, "/api/v1/deposit", BalanceChangeRequest{Account: alice, Asset: "1", Amount: "1"})

	resp := get(t, ts, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hyperdex_calls_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(errs.ErrNotFound))
	assert.Equal(t, http.StatusForbidden, statusFor(errs.ErrNotOwner))
	assert.Equal(t, http.StatusConflict, statusFor(errs.ErrBalanceOverflow))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
