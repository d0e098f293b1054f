package api

import (
	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// API request/response types for REST endpoints.
// Assets are written as tagged ids, "u32:7", or a bare number meaning u32.
// Amounts are decimal strings.

// ==============================
// REST Request Types
// ==============================

// BalanceChangeRequest is the payload for POST /api/v1/deposit and /withdraw
type BalanceChangeRequest struct {
	Account string `json:"account"` // 0x-prefixed address
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

// MakeOrderRequest is the payload for POST /api/v1/orders
type MakeOrderRequest struct {
	Owner           string `json:"owner"`
	OfferedAsset    string `json:"offeredAsset"`
	RequestedAsset  string `json:"requestedAsset"`
	OfferedAmount   string `json:"offeredAmount"`
	RequestedAmount string `json:"requestedAmount"`
	Type            string `json:"type"` // "BUY" or "SELL"
}

// OrderActionRequest is the payload for POST /api/v1/orders/{id}/cancel and /take
type OrderActionRequest struct {
	Account string `json:"account"` // requester for cancel, taker for take
}

// ==============================
// REST Response Types
// ==============================

// BalanceResponse is returned by balance reads and by deposit/withdraw
type BalanceResponse struct {
	Account string    `json:"account"`
	Asset   asset.Id  `json:"asset"`
	Balance *num.Uint `json:"balance"`
}

// MakeOrderResponse is the response from order submission
type MakeOrderResponse struct {
	OrderID uint64 `json:"orderId"`
}

// StatusResponse acknowledges cancel and take
type StatusResponse struct {
	Status  string `json:"status"` // "canceled", "taken"
	OrderID uint64 `json:"orderId"`
}

// StateHashResponse carries the engine digest
type StateHashResponse struct {
	Hash       string `json:"hash"`
	OpenOrders int    `json:"openOrders"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`   // error kind, e.g. "not_found"
	Message string `json:"message"` // full error text
}
