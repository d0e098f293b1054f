package dex

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// Legacy reproduces the historical read paths, which return a default value
// instead of an error. A default is ambiguous: a zero balance, DefaultOrder
// or DefaultId may mean "not found", "unsupported identifier" or a real
// value. New callers should use App directly. Mutating calls are not
// wrapped; they always returned errors.
type Legacy struct {
	app *App
}

func NewLegacy(app *App) *Legacy {
	return &Legacy{app: app}
}

func (l *Legacy) BalanceOf(owner common.Address, id asset.Id) *num.Uint {
	bal, err := l.app.BalanceOf(owner, id)
	if err != nil {
		return num.Zero()
	}
	return bal
}

func (l *Legacy) OrderFor(id uint64) *Order {
	o, err := l.app.OrderFor(id)
	if err != nil {
		return DefaultOrder()
	}
	return o
}

func (l *Legacy) PairOrders(offered, requested asset.Id) []*Order {
	orders, err := l.app.PairOrders(offered, requested)
	if err != nil {
		return []*Order{}
	}
	return orders
}

func (l *Legacy) PairOrderByIndex(offered, requested asset.Id, index uint64) *Order {
	o, err := l.app.PairOrderByIndex(offered, requested, index)
	if err != nil {
		return DefaultOrder()
	}
	return o
}

func (l *Legacy) UserOrderByIndex(owner common.Address, index uint64) *Order {
	o, err := l.app.UserOrderByIndex(owner, index)
	if err != nil {
		return DefaultOrder()
	}
	return o
}

func (l *Legacy) OwnerTokenByIndex(owner common.Address, index uint64) asset.Id {
	id, err := l.app.OwnerTokenByIndex(owner, index)
	if err != nil {
		return asset.DefaultId()
	}
	return id
}
