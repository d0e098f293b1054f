package matching

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

func (e *Engine) BalanceOf(account common.Address, a asset.ID) *num.Uint {
	return e.Ledger.BalanceOf(account, a)
}

func (e *Engine) Supply(a asset.ID) *num.Uint { return e.Ledger.Supply(a) }

func (e *Engine) Tokens() []asset.ID { return e.Ledger.Tokens() }

func (e *Engine) OwnerTokens(owner common.Address) []asset.ID {
	return e.Ledger.OwnerTokens(owner)
}

func (e *Engine) OwnerTokenByIndex(owner common.Address, index uint64) (asset.ID, error) {
	return e.Ledger.OwnerTokenByIndex(owner, index)
}

// Order returns an open order or ErrNotFound.
func (e *Engine) Order(id uint64) (*orderbook.Order, error) {
	o, ok := e.Book.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", errs.ErrNotFound, id)
	}
	return o, nil
}

func (e *Engine) PairOrders(p asset.Pair) []*orderbook.Order { return e.Book.PairOrders(p) }

func (e *Engine) UserOrders(owner common.Address) []*orderbook.Order {
	return e.Book.UserOrders(owner)
}

func (e *Engine) PairOrderByIndex(p asset.Pair, index uint64) (*orderbook.Order, error) {
	return e.Book.PairOrderByIndex(p, index)
}

func (e *Engine) UserOrderByIndex(owner common.Address, index uint64) (*orderbook.Order, error) {
	return e.Book.UserOrderByIndex(owner, index)
}

func (e *Engine) OpenOrders() int { return e.Book.Len() }

// StateHash is a Keccak-256 digest over the full engine state. Two engines
// hash equal iff they hold the same balances, supplies, open orders, index
// positions and next counter value.
func (e *Engine) StateHash() common.Hash {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte

	// 1. Balances, sorted by owner then asset
	for _, b := range e.Ledger.Balances() {
		h.Write([]byte("bal"))
		h.Write(b.Owner.Bytes())
		binary.BigEndian.PutUint32(buf[:4], uint32(b.Asset))
		h.Write(buf[:4])
		h.Write(b.Amount.Bytes())
	}

	// 2. Supplies, sorted by asset
	for _, s := range e.Ledger.Supplies() {
		h.Write([]byte("sup"))
		binary.BigEndian.PutUint32(buf[:4], uint32(s.Asset))
		h.Write(buf[:4])
		h.Write(s.Amount.Bytes())
	}

	// 3. Open orders in counter order
	for _, o := range e.Book.Orders() {
		h.Write([]byte("ord"))
		binary.BigEndian.PutUint64(buf[:], o.ID)
		h.Write(buf[:])
		h.Write(o.Owner.Bytes())
		binary.BigEndian.PutUint32(buf[:4], uint32(o.Pair.Offered))
		h.Write(buf[:4])
		binary.BigEndian.PutUint32(buf[:4], uint32(o.Pair.Requested))
		h.Write(buf[:4])
		h.Write([]byte{byte(o.Type)})
		h.Write(o.OfferedAmount.Bytes())
		h.Write(o.RequestedAmount.Bytes())
		binary.BigEndian.PutUint64(buf[:], o.CreatedAt)
		h.Write(buf[:])

		// position in the pair and owner sequences
		pairPos, ownerPos, _ := e.Book.Positions(o.ID)
		binary.BigEndian.PutUint64(buf[:], uint64(pairPos))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(ownerPos))
		h.Write(buf[:])
	}

	// 4. Counter, so a cancel-everything history differs from a fresh engine
	next, err := e.Book.NextID()
	if err != nil {
		next = ^uint64(0)
	}
	binary.BigEndian.PutUint64(buf[:], next)
	h.Write([]byte("nxt"))
	h.Write(buf[:])

	return common.BytesToHash(h.Sum(nil))
}

// CheckInvariants verifies supply conservation for every asset (free
// balances plus escrow equal recorded supply) and that the book's indexes
// agree with its store.
func (e *Engine) CheckInvariants() error {
	held := make(map[asset.ID]*num.Uint)
	add := func(a asset.ID, v *num.Uint) {
		cur, ok := held[a]
		if !ok {
			cur = num.Zero()
			held[a] = cur
		}
		cur.Add(cur, v)
	}
	for _, b := range e.Ledger.Balances() {
		add(b.Asset, b.Amount)
	}
	for _, o := range e.Book.Orders() {
		add(o.Pair.Offered, o.OfferedAmount)
	}

	supplies := e.Ledger.Supplies()
	if len(supplies) != len(held) {
		return fmt.Errorf("supply covers %d assets, holdings cover %d", len(supplies), len(held))
	}
	for _, s := range supplies {
		got, ok := held[s.Asset]
		if !ok {
			return fmt.Errorf("asset %d: supply %s, nothing held", s.Asset, s.Amount)
		}
		if !got.EQ(s.Amount) {
			return fmt.Errorf("asset %d: supply %s, held %s", s.Asset, s.Amount, got)
		}
	}

	if err := e.Book.Check(); err != nil {
		return fmt.Errorf("book: %w", err)
	}
	return nil
}
