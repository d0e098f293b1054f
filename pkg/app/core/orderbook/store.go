package orderbook

import (
	"math"
	"slices"

	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
)

// Store keeps open orders keyed by a monotonically increasing counter.
// Counter values are never reused, even after the order is gone.
type Store struct {
	orders map[uint64]*Order
	next   uint64
}

func NewStore() *Store {
	return &Store{orders: make(map[uint64]*Order)}
}

// NextID returns the id the next Insert will assign. The last value of the
// 64-bit space is never handed out.
func (s *Store) NextID() (uint64, error) {
	if s.next == math.MaxUint64 {
		return 0, errs.ErrCounterExhausted
	}
	return s.next, nil
}

// Insert assigns the next id to o, stores a copy and advances the counter.
func (s *Store) Insert(o *Order) (uint64, error) {
	id, err := s.NextID()
	if err != nil {
		return 0, err
	}
	o.ID = id
	s.orders[id] = o.Clone()
	s.next++
	return id, nil
}

// Get returns a copy; absence is not an error.
func (s *Store) Get(id uint64) (*Order, bool) {
	o, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Remove is idempotent; the second call reports false.
func (s *Store) Remove(id uint64) (*Order, bool) {
	o, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	delete(s.orders, id)
	return o, true
}

func (s *Store) Len() int { return len(s.orders) }

// All returns copies of every open order in counter order.
func (s *Store) All() []*Order {
	out := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	slices.SortFunc(out, func(a, b *Order) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Restore replaces the contents with persisted orders. next is raised past
// the highest restored id if needed.
func (s *Store) Restore(orders []*Order, next uint64) {
	s.orders = make(map[uint64]*Order, len(orders))
	s.next = next
	for _, o := range orders {
		s.orders[o.ID] = o.Clone()
		if o.ID >= s.next {
			s.next = o.ID + 1
		}
	}
}
