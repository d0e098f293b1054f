package storage

import (
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/ledger"
	"github.com/uhyunpark/hyperdex/pkg/app/core/matching"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// InMemoryStore keeps committed state in maps. Used when no DB path is
// configured and in tests.
type InMemoryStore struct {
	mu       sync.Mutex
	balances map[ledger.Key]*num.Uint
	supply   map[asset.ID]*num.Uint
	orders   map[uint64]*orderbook.Order
	next     uint64
	byPair   map[asset.Pair][]uint64
	byOwner  map[common.Address][]uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		balances: make(map[ledger.Key]*num.Uint),
		supply:   make(map[asset.ID]*num.Uint),
		orders:   make(map[uint64]*orderbook.Order),
		byPair:   make(map[asset.Pair][]uint64),
		byOwner:  make(map[common.Address][]uint64),
	}
}

func (s *InMemoryStore) NewBatch() matching.Batch {
	return &memBatch{s: s}
}

func (s *InMemoryStore) Load() (*matching.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &matching.Snapshot{NextOrderID: s.next}
	for k, v := range s.balances {
		snap.Balances = append(snap.Balances, ledger.Balance{Key: k, Amount: v.Clone()})
	}
	for a, v := range s.supply {
		snap.Supplies = append(snap.Supplies, ledger.Supply{Asset: a, Amount: v.Clone()})
	}
	for _, o := range s.orders {
		snap.Orders = append(snap.Orders, o.Clone())
	}
	snap.Layout = orderbook.Layout{
		ByPair:  make(map[asset.Pair][]uint64, len(s.byPair)),
		ByOwner: make(map[common.Address][]uint64, len(s.byOwner)),
	}
	for p, ids := range s.byPair {
		snap.Layout.ByPair[p] = slices.Clone(ids)
	}
	for owner, ids := range s.byOwner {
		snap.Layout.ByOwner[owner] = slices.Clone(ids)
	}
	return snap, nil
}

// memBatch buffers writes and applies them under the store lock on Commit.
type memBatch struct {
	s   *InMemoryStore
	ops []func(*InMemoryStore)
}

func (b *memBatch) SetBalance(k ledger.Key, amount *num.Uint) error {
	v := amount.Clone()
	b.ops = append(b.ops, func(s *InMemoryStore) {
		if v.IsZero() {
			delete(s.balances, k)
			return
		}
		s.balances[k] = v
	})
	return nil
}

func (b *memBatch) SetSupply(a asset.ID, amount *num.Uint) error {
	v := amount.Clone()
	b.ops = append(b.ops, func(s *InMemoryStore) {
		if v.IsZero() {
			delete(s.supply, a)
			return
		}
		s.supply[a] = v
	})
	return nil
}

func (b *memBatch) SaveOrder(o *orderbook.Order) error {
	c := o.Clone()
	b.ops = append(b.ops, func(s *InMemoryStore) { s.orders[c.ID] = c })
	return nil
}

func (b *memBatch) DeleteOrder(id uint64) error {
	b.ops = append(b.ops, func(s *InMemoryStore) { delete(s.orders, id) })
	return nil
}

func (b *memBatch) SetNextOrderID(next uint64) error {
	b.ops = append(b.ops, func(s *InMemoryStore) { s.next = next })
	return nil
}

func (b *memBatch) SetPairIndex(p asset.Pair, ids []uint64) error {
	c := slices.Clone(ids)
	b.ops = append(b.ops, func(s *InMemoryStore) {
		if len(c) == 0 {
			delete(s.byPair, p)
			return
		}
		s.byPair[p] = c
	})
	return nil
}

func (b *memBatch) SetOwnerIndex(owner common.Address, ids []uint64) error {
	c := slices.Clone(ids)
	b.ops = append(b.ops, func(s *InMemoryStore) {
		if len(c) == 0 {
			delete(s.byOwner, owner)
			return
		}
		s.byOwner[owner] = c
	})
	return nil
}

func (b *memBatch) Commit() error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	for _, op := range b.ops {
		op(b.s)
	}
	b.ops = nil
	return nil
}

func (b *memBatch) Close() error {
	b.ops = nil
	return nil
}

var _ matching.Store = (*InMemoryStore)(nil)
