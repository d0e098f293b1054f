package dex

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// Pair is the external form of an order pair: two tagged identifiers.
type Pair struct {
	Offered   asset.Id `json:"offered"`
	Requested asset.Id `json:"requested"`
}

// Order is the externally facing order record.
type Order struct {
	ID              uint64         `json:"id"`
	Owner           common.Address `json:"owner"`
	Pair            Pair           `json:"pair"`
	Type            orderbook.Side `json:"type"`
	OfferedAmount   *num.Uint      `json:"offeredAmount"`
	RequestedAmount *num.Uint      `json:"requestedAmount"`
	CreatedAt       uint64         `json:"createdAt"`
}

func toExternal(o *orderbook.Order) *Order {
	return &Order{
		ID:    o.ID,
		Owner: o.Owner,
		Pair: Pair{
			Offered:   asset.FromID(o.Pair.Offered),
			Requested: asset.FromID(o.Pair.Requested),
		},
		Type:            o.Type,
		OfferedAmount:   o.OfferedAmount.Clone(),
		RequestedAmount: o.RequestedAmount.Clone(),
		CreatedAt:       o.CreatedAt,
	}
}

func toExternalList(orders []*orderbook.Order) []*Order {
	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, toExternal(o))
	}
	return out
}

func toIds(ids []asset.ID) []asset.Id {
	out := make([]asset.Id, 0, len(ids))
	for _, id := range ids {
		out = append(out, asset.FromID(id))
	}
	return out
}

// DefaultOrder is what the legacy read paths return in place of an error:
// counter 0, zero owner, pair (U64(0), U64(0)), BUY, zero amounts.
func DefaultOrder() *Order {
	return &Order{
		Pair: Pair{
			Offered:   asset.U64(0),
			Requested: asset.U64(0),
		},
		Type:            orderbook.Buy,
		OfferedAmount:   num.Zero(),
		RequestedAmount: num.Zero(),
	}
}
