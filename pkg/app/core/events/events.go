// Package events defines the notifications emitted after each successful
// engine mutation and the sinks that receive them.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

type Type uint8

const (
	TypeDeposit Type = iota
	TypeWithdraw
	TypeOrderCreated
	TypeOrderCanceled
	TypeOrderTaken
)

func (t Type) String() string {
	switch t {
	case TypeDeposit:
		return "deposit"
	case TypeWithdraw:
		return "withdraw"
	case TypeOrderCreated:
		return "order_created"
	case TypeOrderCanceled:
		return "order_canceled"
	case TypeOrderTaken:
		return "order_taken"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event is one of the concrete notification structs below.
type Event interface {
	Type() Type
}

type Deposit struct {
	Account common.Address `json:"account"`
	Asset   asset.ID       `json:"asset"`
	Amount  *num.Uint      `json:"amount"`
}

type Withdraw struct {
	Account common.Address `json:"account"`
	Asset   asset.ID       `json:"asset"`
	Amount  *num.Uint      `json:"amount"`
}

type OrderCreated struct {
	OrderID   uint64         `json:"order_id"`
	Owner     common.Address `json:"owner"`
	Pair      asset.Pair     `json:"pair"`
	Offered   *num.Uint      `json:"offered_amount"`
	Requested *num.Uint      `json:"requested_amount"`
	Side      orderbook.Side `json:"type"`
}

type OrderCanceled struct {
	OrderID uint64 `json:"order_id"`
}

type OrderTaken struct {
	OrderID uint64         `json:"order_id"`
	Taker   common.Address `json:"taker"`
}

func (Deposit) Type() Type       { return TypeDeposit }
func (Withdraw) Type() Type      { return TypeWithdraw }
func (OrderCreated) Type() Type  { return TypeOrderCreated }
func (OrderCanceled) Type() Type { return TypeOrderCanceled }
func (OrderTaken) Type() Type    { return TypeOrderTaken }

// Sink receives events in emission order. Emit is called after the state
// change is durable, so a sink cannot veto it; sinks report their own
// delivery failures.
type Sink interface {
	Emit(ev Event)
}

// Encode renders {"type":"order_taken","data":{...}}, the form written to the
// journal and to Kafka.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Data Event  `json:"data"`
	}{Type: ev.Type().String(), Data: ev})
}

// Key picks the partition key: the order id for order events, the account for
// balance events.
func Key(ev Event) []byte {
	switch e := ev.(type) {
	case Deposit:
		return e.Account.Bytes()
	case Withdraw:
		return e.Account.Bytes()
	case OrderCreated:
		return []byte(fmt.Sprintf("%d", e.OrderID))
	case OrderCanceled:
		return []byte(fmt.Sprintf("%d", e.OrderID))
	case OrderTaken:
		return []byte(fmt.Sprintf("%d", e.OrderID))
	default:
		return nil
	}
}
