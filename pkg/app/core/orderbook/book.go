// Package orderbook stores open orders and indexes them by pair and by owner.
//
// Book keeps the store and both indexes in lockstep: an order is present in
// all three or in none. It is not safe for concurrent use.
package orderbook

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
)

type Book struct {
	store   *Store
	byPair  *Index[asset.Pair]
	byOwner *Index[common.Address]
	policy  Compaction
}

func NewBook(policy Compaction) *Book {
	return &Book{
		store:   NewStore(),
		byPair:  NewIndex[asset.Pair](policy),
		byOwner: NewIndex[common.Address](policy),
		policy:  policy,
	}
}

func (b *Book) Compaction() Compaction { return b.policy }

func (b *Book) NextID() (uint64, error) { return b.store.NextID() }

func (b *Book) Len() int { return b.store.Len() }

// Insert stores o under the next counter value and files it in both indexes.
func (b *Book) Insert(o *Order) (uint64, error) {
	id, err := b.store.Insert(o)
	if err != nil {
		return 0, err
	}
	b.byPair.Add(o.Pair, id)
	b.byOwner.Add(o.Owner, id)
	return id, nil
}

// Remove drops the order from the store and both indexes.
func (b *Book) Remove(id uint64) (*Order, bool) {
	o, ok := b.store.Remove(id)
	if !ok {
		return nil, false
	}
	b.byPair.Remove(o.Pair, id)
	b.byOwner.Remove(o.Owner, id)
	return o, true
}

func (b *Book) Get(id uint64) (*Order, bool) { return b.store.Get(id) }

func (b *Book) PairOrderByIndex(p asset.Pair, index uint64) (*Order, error) {
	id, ok := b.byPair.At(p, index)
	if !ok {
		return nil, fmt.Errorf("%w: order %d of pair %s", errs.ErrIndexOutOfRange, index, p)
	}
	return b.mustGet(id), nil
}

func (b *Book) UserOrderByIndex(owner common.Address, index uint64) (*Order, error) {
	id, ok := b.byOwner.At(owner, index)
	if !ok {
		return nil, fmt.Errorf("%w: order %d of %s", errs.ErrIndexOutOfRange, index, owner.Hex())
	}
	return b.mustGet(id), nil
}

// PairOrders lists the live orders of a pair in index order.
func (b *Book) PairOrders(p asset.Pair) []*Order {
	return b.resolve(b.byPair.List(p))
}

// UserOrders lists the live orders of an owner in index order.
func (b *Book) UserOrders(owner common.Address) []*Order {
	return b.resolve(b.byOwner.List(owner))
}

// Orders returns every open order in counter order.
func (b *Book) Orders() []*Order { return b.store.All() }

// Layout is the persisted order of both indexes, keyed like the indexes.
type Layout struct {
	ByPair  map[asset.Pair][]uint64
	ByOwner map[common.Address][]uint64
}

// Sequences holds the pair and owner sequences an order touches, as they
// will read after a pending insert or remove. An empty slice means the key
// goes away.
type Sequences struct {
	Pair     asset.Pair
	PairIDs  []uint64
	Owner    common.Address
	OwnerIDs []uint64
}

// AfterInsert previews both sequences once o is inserted. o.ID must already
// carry the id NextID returned.
func (b *Book) AfterInsert(o *Order) Sequences {
	return Sequences{
		Pair:     o.Pair,
		PairIDs:  b.byPair.AfterAdd(o.Pair, o.ID),
		Owner:    o.Owner,
		OwnerIDs: b.byOwner.AfterAdd(o.Owner, o.ID),
	}
}

// AfterRemove previews both sequences once id is removed.
func (b *Book) AfterRemove(id uint64) (Sequences, bool) {
	o, ok := b.store.Get(id)
	if !ok {
		return Sequences{}, false
	}
	pairIDs, ok := b.byPair.AfterRemove(o.Pair, id)
	if !ok {
		return Sequences{}, false
	}
	ownerIDs, ok := b.byOwner.AfterRemove(o.Owner, id)
	if !ok {
		return Sequences{}, false
	}
	return Sequences{Pair: o.Pair, PairIDs: pairIDs, Owner: o.Owner, OwnerIDs: ownerIDs}, true
}

// Layout returns the current order of both indexes.
func (b *Book) Layout() Layout {
	l := Layout{
		ByPair:  make(map[asset.Pair][]uint64),
		ByOwner: make(map[common.Address][]uint64),
	}
	for _, k := range b.byPair.Keys() {
		l.ByPair[k] = b.byPair.List(k)
	}
	for _, k := range b.byOwner.Keys() {
		l.ByOwner[k] = b.byOwner.List(k)
	}
	return l
}

// Positions reports where id sits in its pair and owner sequences.
func (b *Book) Positions(id uint64) (pair, owner int, ok bool) {
	pair, ok = b.byPair.Position(id)
	if !ok {
		return 0, 0, false
	}
	owner, ok = b.byOwner.Position(id)
	return pair, owner, ok
}

// Restore loads persisted orders and files them at the positions recorded
// in layout. Ids the layout names that are missing, duplicated or filed
// under the wrong key are skipped. Orders the layout does not place are
// appended in counter order; the count of those is returned.
func (b *Book) Restore(orders []*Order, next uint64, layout Layout) int {
	b.store.Restore(orders, next)
	b.byPair = NewIndex[asset.Pair](b.policy)
	b.byOwner = NewIndex[common.Address](b.policy)

	for p, ids := range layout.ByPair {
		for _, id := range ids {
			o, ok := b.store.orders[id]
			if !ok || o.Pair != p {
				continue
			}
			if _, dup := b.byPair.Position(id); !dup {
				b.byPair.Add(p, id)
			}
		}
	}
	for owner, ids := range layout.ByOwner {
		for _, id := range ids {
			o, ok := b.store.orders[id]
			if !ok || o.Owner != owner {
				continue
			}
			if _, dup := b.byOwner.Position(id); !dup {
				b.byOwner.Add(owner, id)
			}
		}
	}

	unplaced := 0
	for _, o := range b.store.All() {
		_, inPair := b.byPair.Position(o.ID)
		_, inOwner := b.byOwner.Position(o.ID)
		if !inPair {
			b.byPair.Add(o.Pair, o.ID)
		}
		if !inOwner {
			b.byOwner.Add(o.Owner, o.ID)
		}
		if !inPair || !inOwner {
			unplaced++
		}
	}
	return unplaced
}

// Check verifies that every stored order sits in both indexes at the
// position the index claims, and that the indexes hold nothing else.
func (b *Book) Check() error {
	n := b.store.Len()
	if b.byPair.Size() != n || b.byOwner.Size() != n {
		return fmt.Errorf("index size mismatch: store=%d by_pair=%d by_owner=%d",
			n, b.byPair.Size(), b.byOwner.Size())
	}
	for _, o := range b.store.All() {
		if err := checkFiled(b.byPair, o.Pair, o.ID); err != nil {
			return fmt.Errorf("by_pair: %w", err)
		}
		if err := checkFiled(b.byOwner, o.Owner, o.ID); err != nil {
			return fmt.Errorf("by_owner: %w", err)
		}
	}
	return nil
}

func checkFiled[K comparable](ix *Index[K], k K, id uint64) error {
	i, ok := ix.Position(id)
	if !ok {
		return fmt.Errorf("order %d not indexed", id)
	}
	got, ok := ix.At(k, uint64(i))
	if !ok || got != id {
		return fmt.Errorf("order %d filed at wrong position %d", id, i)
	}
	return nil
}

func (b *Book) resolve(ids []uint64) []*Order {
	out := make([]*Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.mustGet(id))
	}
	return out
}

func (b *Book) mustGet(id uint64) *Order {
	o, ok := b.store.Get(id)
	if !ok {
		panic(fmt.Sprintf("orderbook: index references missing order %d", id))
	}
	return o
}
