// Package dex is the boundary in front of the matching engine. It reduces
// tagged asset identifiers to engine ids, converts orders to their external
// form, serializes every call and returns explicit errors.
//
// Legacy wraps App for callers that still expect defaults in place of
// read errors.
package dex

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/matching"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// App runs one call at a time to completion, reads included.
type App struct {
	mu      sync.Mutex
	engine  *matching.Engine
	metrics *Metrics
	log     *zap.SugaredLogger
}

// NewApp wraps engine. metrics may be nil.
func NewApp(engine *matching.Engine, metrics *Metrics, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		engine:  engine,
		metrics: metrics,
		log:     log.Named("dex").Sugar(),
	}
	a.metrics.setOpenOrders(engine.OpenOrders())
	return a
}

// call runs fn under the lock and records the outcome.
func (a *App) call(op string, fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := fn()
	a.metrics.observe(op, err)
	if err != nil {
		a.log.Debugw("call_failed", "op", op, "kind", ErrorKind(err), "err", err)
	}
	return err
}

func (a *App) Deposit(account common.Address, id asset.Id, amount *num.Uint) (*num.Uint, error) {
	var bal *num.Uint
	err := a.call("deposit", func() error {
		aid, err := id.Reduce()
		if err != nil {
			return err
		}
		bal, err = a.engine.Deposit(account, aid, amount)
		return err
	})
	return bal, err
}

func (a *App) Withdraw(account common.Address, id asset.Id, amount *num.Uint) (*num.Uint, error) {
	var bal *num.Uint
	err := a.call("withdraw", func() error {
		aid, err := id.Reduce()
		if err != nil {
			return err
		}
		bal, err = a.engine.Withdraw(account, aid, amount)
		return err
	})
	return bal, err
}

func (a *App) BalanceOf(owner common.Address, id asset.Id) (*num.Uint, error) {
	var bal *num.Uint
	err := a.call("balance_of", func() error {
		aid, err := id.Reduce()
		if err != nil {
			return err
		}
		bal = a.engine.BalanceOf(owner, aid)
		return nil
	})
	return bal, err
}

// Tokens lists every asset with non-zero supply.
func (a *App) Tokens() []asset.Id {
	var out []asset.Id
	_ = a.call("tokens", func() error {
		out = toIds(a.engine.Tokens())
		return nil
	})
	return out
}

// OwnersTokens lists the assets owner holds a free balance of.
func (a *App) OwnersTokens(owner common.Address) []asset.Id {
	var out []asset.Id
	_ = a.call("owners_tokens", func() error {
		out = toIds(a.engine.OwnerTokens(owner))
		return nil
	})
	return out
}

func (a *App) OwnerTokenByIndex(owner common.Address, index uint64) (asset.Id, error) {
	var out asset.Id
	err := a.call("owner_token_by_index", func() error {
		aid, err := a.engine.OwnerTokenByIndex(owner, index)
		if err != nil {
			return err
		}
		out = asset.FromID(aid)
		return nil
	})
	return out, err
}

func (a *App) OrderFor(id uint64) (*Order, error) {
	var out *Order
	err := a.call("order_for", func() error {
		o, err := a.engine.Order(id)
		if err != nil {
			return err
		}
		out = toExternal(o)
		return nil
	})
	return out, err
}

func (a *App) PairOrders(offered, requested asset.Id) ([]*Order, error) {
	var out []*Order
	err := a.call("pair_orders", func() error {
		pair, err := asset.ReducePair(offered, requested)
		if err != nil {
			return err
		}
		out = toExternalList(a.engine.PairOrders(pair))
		return nil
	})
	return out, err
}

func (a *App) UserOrders(owner common.Address) []*Order {
	var out []*Order
	_ = a.call("user_orders", func() error {
		out = toExternalList(a.engine.UserOrders(owner))
		return nil
	})
	return out
}

func (a *App) PairOrderByIndex(offered, requested asset.Id, index uint64) (*Order, error) {
	var out *Order
	err := a.call("pair_order_by_index", func() error {
		pair, err := asset.ReducePair(offered, requested)
		if err != nil {
			return err
		}
		o, err := a.engine.PairOrderByIndex(pair, index)
		if err != nil {
			return err
		}
		out = toExternal(o)
		return nil
	})
	return out, err
}

func (a *App) UserOrderByIndex(owner common.Address, index uint64) (*Order, error) {
	var out *Order
	err := a.call("user_order_by_index", func() error {
		o, err := a.engine.UserOrderByIndex(owner, index)
		if err != nil {
			return err
		}
		out = toExternal(o)
		return nil
	})
	return out, err
}

func (a *App) MakeOrder(owner common.Address, offered, requested asset.Id, offeredAmount, requestedAmount *num.Uint, side orderbook.Side) (uint64, error) {
	var id uint64
	err := a.call("make_order", func() error {
		pair, err := asset.ReducePair(offered, requested)
		if err != nil {
			return err
		}
		id, err = a.engine.MakeOrder(owner, pair, offeredAmount, requestedAmount, side)
		a.metrics.setOpenOrders(a.engine.OpenOrders())
		return err
	})
	return id, err
}

func (a *App) CancelOrder(id uint64, requester common.Address) error {
	return a.call("cancel_order", func() error {
		err := a.engine.CancelOrder(id, requester)
		a.metrics.setOpenOrders(a.engine.OpenOrders())
		return err
	})
}

func (a *App) TakeOrder(id uint64, taker common.Address) error {
	return a.call("take_order", func() error {
		err := a.engine.TakeOrder(id, taker)
		a.metrics.setOpenOrders(a.engine.OpenOrders())
		return err
	})
}

func (a *App) StateHash() common.Hash {
	var h common.Hash
	_ = a.call("state_hash", func() error {
		h = a.engine.StateHash()
		return nil
	})
	return h
}

// Stats is a small summary for `node inspect` and the state hash endpoint.
type Stats struct {
	OpenOrders int        `json:"open_orders"`
	Tokens     []asset.Id `json:"tokens"`
	StateHash  string     `json:"state_hash"`
}

func (a *App) Stats() Stats {
	var s Stats
	_ = a.call("stats", func() error {
		s = Stats{
			OpenOrders: a.engine.OpenOrders(),
			Tokens:     toIds(a.engine.Tokens()),
			StateHash:  a.engine.StateHash().Hex(),
		}
		return nil
	})
	return s
}

func (a *App) CheckInvariants() error {
	return a.call("check_invariants", a.engine.CheckInvariants)
}
