package ledger

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// Batch stages balance and supply changes on top of a Ledger.
type Batch struct {
	l        *Ledger
	balances map[Key]*num.Uint
	supply   map[asset.ID]*num.Uint
}

func (l *Ledger) NewBatch() *Batch {
	return &Batch{
		l:        l,
		balances: make(map[Key]*num.Uint),
		supply:   make(map[asset.ID]*num.Uint),
	}
}

// Balance reads through pending changes.
func (b *Batch) Balance(owner common.Address, a asset.ID) *num.Uint {
	if v, ok := b.balances[Key{owner, a}]; ok {
		return v.Clone()
	}
	return b.l.BalanceOf(owner, a)
}

func (b *Batch) Supply(a asset.ID) *num.Uint {
	if v, ok := b.supply[a]; ok {
		return v.Clone()
	}
	return b.l.Supply(a)
}

// Credit adds amount to a balance and returns the new value.
func (b *Batch) Credit(owner common.Address, a asset.ID, amount *num.Uint) (*num.Uint, error) {
	cur := b.Balance(owner, a)
	if _, ok := cur.AddChecked(cur, amount); !ok {
		return nil, fmt.Errorf("%w: credit %s to %s asset %d", errs.ErrBalanceOverflow, amount, owner.Hex(), a)
	}
	b.balances[Key{owner, a}] = cur
	return cur.Clone(), nil
}

// Debit subtracts amount from a balance and returns the new value.
func (b *Batch) Debit(owner common.Address, a asset.ID, amount *num.Uint) (*num.Uint, error) {
	cur := b.Balance(owner, a)
	if _, ok := cur.SubChecked(cur, amount); !ok {
		return nil, fmt.Errorf("%w: %s holds %s of asset %d, needs %s",
			errs.ErrInsufficientBalance, owner.Hex(), cur, a, amount)
	}
	b.balances[Key{owner, a}] = cur
	return cur.Clone(), nil
}

// Transfer debits from and credits to. Pending state is unchanged when it
// fails.
func (b *Batch) Transfer(from, to common.Address, a asset.ID, amount *num.Uint) error {
	fromKey, toKey := Key{from, a}, Key{to, a}
	prevFrom, hadFrom := b.balances[fromKey]
	prevTo, hadTo := b.balances[toKey]

	if _, err := b.Debit(from, a, amount); err != nil {
		return err
	}
	if _, err := b.Credit(to, a, amount); err != nil {
		restore(b.balances, fromKey, prevFrom, hadFrom)
		restore(b.balances, toKey, prevTo, hadTo)
		return err
	}
	return nil
}

func restore(m map[Key]*num.Uint, k Key, v *num.Uint, had bool) {
	if had {
		m[k] = v
		return
	}
	delete(m, k)
}

// Deposit credits amount to owner from outside the ledger and raises supply
// by the same amount. On error the batch must be discarded.
func (b *Batch) Deposit(owner common.Address, a asset.ID, amount *num.Uint) (*num.Uint, error) {
	if amount == nil || amount.IsZero() {
		return nil, errs.ErrInvalidAmount
	}
	bal, err := b.Credit(owner, a, amount)
	if err != nil {
		return nil, err
	}
	if err := b.Mint(a, amount); err != nil {
		return nil, err
	}
	return bal, nil
}

// Withdraw debits amount from owner to outside the ledger and lowers supply
// by the same amount. On error the batch must be discarded.
func (b *Batch) Withdraw(owner common.Address, a asset.ID, amount *num.Uint) (*num.Uint, error) {
	if amount == nil || amount.IsZero() {
		return nil, errs.ErrInvalidAmount
	}
	bal, err := b.Debit(owner, a, amount)
	if err != nil {
		return nil, err
	}
	if err := b.Burn(a, amount); err != nil {
		return nil, err
	}
	return bal, nil
}

// Mint raises the recorded supply of an asset.
func (b *Batch) Mint(a asset.ID, amount *num.Uint) error {
	cur := b.Supply(a)
	if _, ok := cur.AddChecked(cur, amount); !ok {
		return fmt.Errorf("%w: supply of asset %d", errs.ErrBalanceOverflow, a)
	}
	b.supply[a] = cur
	return nil
}

// Burn lowers the recorded supply of an asset.
func (b *Batch) Burn(a asset.ID, amount *num.Uint) error {
	cur := b.Supply(a)
	if _, ok := cur.SubChecked(cur, amount); !ok {
		return fmt.Errorf("%w: supply of asset %d below %s", errs.ErrInsufficientBalance, a, amount)
	}
	b.supply[a] = cur
	return nil
}

// Changes returns the touched balance slots with their pending values,
// ordered by owner bytes, then asset. Zero values are included so storage
// can delete them.
func (b *Batch) Changes() []Balance {
	out := make([]Balance, 0, len(b.balances))
	for k, v := range b.balances {
		out = append(out, Balance{Key: k, Amount: v.Clone()})
	}
	slices.SortFunc(out, func(x, y Balance) int { return compareKeys(x.Key, y.Key) })
	return out
}

func (b *Batch) SupplyChanges() []Supply {
	out := make([]Supply, 0, len(b.supply))
	for a, v := range b.supply {
		out = append(out, Supply{Asset: a, Amount: v.Clone()})
	}
	slices.SortFunc(out, func(x, y Supply) int { return cmp.Compare(x.Asset, y.Asset) })
	return out
}

// Commit applies the pending changes to the ledger. The batch must not be
// reused afterwards.
func (b *Batch) Commit() {
	for k, v := range b.balances {
		b.l.setBalance(k, v)
	}
	for a, v := range b.supply {
		b.l.setSupply(a, v)
	}
	b.balances = nil
	b.supply = nil
}
