// Package matching executes deposits, withdrawals and the order lifecycle
// against the ledger and the order book.
//
// Every mutating call runs in the same stages: validate on a ledger batch,
// write one storage batch, commit the ledger batch, update the book, emit.
// A failure in any stage before the ledger commit leaves memory untouched
// and emits nothing. The engine is not safe for concurrent use.
package matching

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
	"github.com/uhyunpark/hyperdex/pkg/app/core/events"
	"github.com/uhyunpark/hyperdex/pkg/app/core/ledger"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
	"github.com/uhyunpark/hyperdex/pkg/util"
)

type Engine struct {
	Ledger *ledger.Ledger
	Book   *orderbook.Book

	Store  Store
	Sink   events.Sink
	Clock  util.Clock
	Logger *zap.SugaredLogger
}

type Config struct {
	Compaction orderbook.Compaction
	Store      Store       // nil keeps state in memory only
	Sink       events.Sink // nil drops events
	Clock      util.Clock  // nil uses wall time
	Logger     *zap.Logger // nil disables logging
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		Ledger: ledger.New(),
		Book:   orderbook.NewBook(cfg.Compaction),
		Store:  cfg.Store,
		Sink:   cfg.Sink,
		Clock:  cfg.Clock,
	}
	if e.Store == nil {
		e.Store = nopStore{}
	}
	if e.Sink == nil {
		e.Sink = events.Nop{}
	}
	if e.Clock == nil {
		e.Clock = util.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e.Logger = logger.Named("engine").Sugar()
	return e
}

// Restore replaces in-memory state with what the store holds. Index
// positions come from the persisted layout, so pagination reads the same
// before and after a restart.
func (e *Engine) Restore() error {
	snap, err := e.Store.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	e.Ledger.Restore(snap.Balances, snap.Supplies)
	unplaced := e.Book.Restore(snap.Orders, snap.NextOrderID, snap.Layout)
	if err := e.CheckInvariants(); err != nil {
		return fmt.Errorf("restored state is inconsistent: %w", err)
	}
	if unplaced > 0 {
		e.Logger.Warnw("orders_without_index_position", "count", unplaced)
	}
	e.Logger.Infow("state_restored",
		"balances", len(snap.Balances),
		"assets", len(snap.Supplies),
		"open_orders", len(snap.Orders),
		"next_order_id", snap.NextOrderID,
	)
	return nil
}

func validAmount(v *num.Uint) bool {
	return v != nil && !v.IsZero()
}

// Deposit credits amount to account from outside the engine.
func (e *Engine) Deposit(account common.Address, a asset.ID, amount *num.Uint) (*num.Uint, error) {
	lb := e.Ledger.NewBatch()
	bal, err := lb.Deposit(account, a, amount)
	if err != nil {
		return nil, err
	}
	if err := e.persist(lb, nil); err != nil {
		return nil, err
	}
	lb.Commit()

	e.Logger.Debugw("deposit", "account", account.Hex(), "asset", a, "amount", amount, "balance", bal)
	e.Sink.Emit(events.Deposit{Account: account, Asset: a, Amount: amount.Clone()})
	return bal, nil
}

// Withdraw debits amount from account to outside the engine. Escrowed
// amounts are not withdrawable.
func (e *Engine) Withdraw(account common.Address, a asset.ID, amount *num.Uint) (*num.Uint, error) {
	lb := e.Ledger.NewBatch()
	bal, err := lb.Withdraw(account, a, amount)
	if err != nil {
		return nil, err
	}
	if err := e.persist(lb, nil); err != nil {
		return nil, err
	}
	lb.Commit()

	e.Logger.Debugw("withdraw", "account", account.Hex(), "asset", a, "amount", amount, "balance", bal)
	e.Sink.Emit(events.Withdraw{Account: account, Asset: a, Amount: amount.Clone()})
	return bal, nil
}

// MakeOrder escrows offered of pair.Offered from owner and opens an order
// asking requested of pair.Requested in return.
func (e *Engine) MakeOrder(owner common.Address, pair asset.Pair, offered, requested *num.Uint, side orderbook.Side) (uint64, error) {
	if !validAmount(offered) || !validAmount(requested) {
		return 0, errs.ErrInvalidAmount
	}
	if pair.Offered == pair.Requested {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidPair, pair)
	}
	id, err := e.Book.NextID()
	if err != nil {
		return 0, err
	}

	lb := e.Ledger.NewBatch()
	if _, err := lb.Debit(owner, pair.Offered, offered); err != nil {
		return 0, err
	}

	order := &orderbook.Order{
		ID:              id,
		Owner:           owner,
		Pair:            pair,
		Type:            side,
		OfferedAmount:   offered.Clone(),
		RequestedAmount: requested.Clone(),
		CreatedAt:       util.UnixMillis(e.Clock),
	}
	seqs := e.Book.AfterInsert(order)
	err = e.persist(lb, func(sb Batch) error {
		if err := sb.SaveOrder(order); err != nil {
			return err
		}
		if err := sb.SetNextOrderID(id + 1); err != nil {
			return err
		}
		return stageSequences(sb, seqs)
	})
	if err != nil {
		return 0, err
	}
	lb.Commit()

	if got, err := e.Book.Insert(order); err != nil || got != id {
		// NextID was checked above and nothing else writes the book
		panic(fmt.Sprintf("matching: book assigned %d (err %v), persisted %d", got, err, id))
	}

	e.Logger.Infow("order_created", "id", id, "owner", owner.Hex(), "pair", pair.String(),
		"offered", offered, "requested", requested, "type", side.String())
	e.Sink.Emit(events.OrderCreated{
		OrderID:   id,
		Owner:     owner,
		Pair:      pair,
		Offered:   offered.Clone(),
		Requested: requested.Clone(),
		Side:      side,
	})
	return id, nil
}

// CancelOrder closes an open order and returns the escrow to its owner.
func (e *Engine) CancelOrder(id uint64, requester common.Address) error {
	order, ok := e.Book.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", errs.ErrNotFound, id)
	}
	if order.Owner != requester {
		return fmt.Errorf("%w: order %d", errs.ErrNotOwner, id)
	}

	lb := e.Ledger.NewBatch()
	if _, err := lb.Credit(order.Owner, order.Pair.Offered, order.OfferedAmount); err != nil {
		return err
	}
	if err := e.persistRemoval(lb, id); err != nil {
		return err
	}
	lb.Commit()
	e.Book.Remove(id)

	e.Logger.Infow("order_canceled", "id", id, "owner", order.Owner.Hex())
	e.Sink.Emit(events.OrderCanceled{OrderID: id})
	return nil
}

// TakeOrder fills an open order whole: taker pays requested of
// pair.Requested to the owner and receives the escrowed offered amount.
func (e *Engine) TakeOrder(id uint64, taker common.Address) error {
	order, ok := e.Book.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", errs.ErrNotFound, id)
	}
	if order.Owner == taker {
		return fmt.Errorf("%w: order %d", errs.ErrSelfTrade, id)
	}

	lb := e.Ledger.NewBatch()
	if err := lb.Transfer(taker, order.Owner, order.Pair.Requested, order.RequestedAmount); err != nil {
		return err
	}
	if _, err := lb.Credit(taker, order.Pair.Offered, order.OfferedAmount); err != nil {
		return err
	}
	if err := e.persistRemoval(lb, id); err != nil {
		return err
	}
	lb.Commit()
	e.Book.Remove(id)

	e.Logger.Infow("order_taken", "id", id, "owner", order.Owner.Hex(), "taker", taker.Hex(),
		"pair", order.Pair.String())
	e.Sink.Emit(events.OrderTaken{OrderID: id, Taker: taker})
	return nil
}

// persistRemoval stages the order delete together with both index
// sequences as they will read once the order is gone.
func (e *Engine) persistRemoval(lb *ledger.Batch, id uint64) error {
	seqs, ok := e.Book.AfterRemove(id)
	if !ok {
		panic(fmt.Sprintf("matching: order %d is stored but not indexed", id))
	}
	return e.persist(lb, func(sb Batch) error {
		if err := sb.DeleteOrder(id); err != nil {
			return err
		}
		return stageSequences(sb, seqs)
	})
}

func stageSequences(sb Batch, seqs orderbook.Sequences) error {
	if err := sb.SetPairIndex(seqs.Pair, seqs.PairIDs); err != nil {
		return err
	}
	return sb.SetOwnerIndex(seqs.Owner, seqs.OwnerIDs)
}

// persist writes the ledger batch's pending changes plus any extra writes in
// one storage batch.
func (e *Engine) persist(lb *ledger.Batch, extra func(Batch) error) error {
	sb := e.Store.NewBatch()
	defer sb.Close()

	for _, c := range lb.Changes() {
		if err := sb.SetBalance(c.Key, c.Amount); err != nil {
			return fmt.Errorf("stage balance %s: %w", c.Key, err)
		}
	}
	for _, s := range lb.SupplyChanges() {
		if err := sb.SetSupply(s.Asset, s.Amount); err != nil {
			return fmt.Errorf("stage supply %d: %w", s.Asset, err)
		}
	}
	if extra != nil {
		if err := extra(sb); err != nil {
			return fmt.Errorf("stage order: %w", err)
		}
	}
	if err := sb.Commit(); err != nil {
		e.Logger.Errorw("persist_failed", "err", err)
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
