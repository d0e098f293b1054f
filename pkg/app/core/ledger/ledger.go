// Package ledger holds per-account, per-asset balance custody.
//
// Every mutation goes through a Batch: reads see pending values, nothing
// reaches the ledger until Commit, and a discarded batch leaves the ledger
// untouched. Deposit, Withdraw and Transfer are one-shot batches.
package ledger

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/btree"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

const btreeDegree = 16

// Key addresses one balance slot.
type Key struct {
	Owner common.Address
	Asset asset.ID
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Owner.Hex(), k.Asset)
}

func compareKeys(a, b Key) int {
	if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
		return c
	}
	return cmp.Compare(a.Asset, b.Asset)
}

// Balance is one non-zero balance entry.
type Balance struct {
	Key
	Amount *num.Uint
}

// Supply is the net amount of an asset deposited from outside.
type Supply struct {
	Asset  asset.ID
	Amount *num.Uint
}

// Ledger is not safe for concurrent use; the engine above it is the single
// writer.
type Ledger struct {
	balances map[Key]*num.Uint
	supply   map[asset.ID]*num.Uint

	tokens *btree.BTreeG[asset.ID]                    // assets with non-zero supply
	owned  map[common.Address]*btree.BTreeG[asset.ID] // assets with non-zero balance per owner
}

func New() *Ledger {
	return &Ledger{
		balances: make(map[Key]*num.Uint),
		supply:   make(map[asset.ID]*num.Uint),
		tokens:   btree.NewOrderedG[asset.ID](btreeDegree),
		owned:    make(map[common.Address]*btree.BTreeG[asset.ID]),
	}
}

// Deposit credits amount to owner and raises supply. Returns the new balance.
func (l *Ledger) Deposit(owner common.Address, a asset.ID, amount *num.Uint) (*num.Uint, error) {
	b := l.NewBatch()
	bal, err := b.Deposit(owner, a, amount)
	if err != nil {
		return nil, err
	}
	b.Commit()
	return bal, nil
}

// Withdraw debits amount from owner and lowers supply. Returns the new balance.
func (l *Ledger) Withdraw(owner common.Address, a asset.ID, amount *num.Uint) (*num.Uint, error) {
	b := l.NewBatch()
	bal, err := b.Withdraw(owner, a, amount)
	if err != nil {
		return nil, err
	}
	b.Commit()
	return bal, nil
}

// Transfer moves amount between two accounts. On failure neither balance
// changes.
func (l *Ledger) Transfer(from, to common.Address, a asset.ID, amount *num.Uint) error {
	b := l.NewBatch()
	if err := b.Transfer(from, to, a, amount); err != nil {
		return err
	}
	b.Commit()
	return nil
}

// BalanceOf returns a copy of the balance; unknown slots read as zero.
func (l *Ledger) BalanceOf(owner common.Address, a asset.ID) *num.Uint {
	if v, ok := l.balances[Key{owner, a}]; ok {
		return v.Clone()
	}
	return num.Zero()
}

func (l *Ledger) Supply(a asset.ID) *num.Uint {
	if v, ok := l.supply[a]; ok {
		return v.Clone()
	}
	return num.Zero()
}

// Tokens lists every asset with non-zero supply, ascending.
func (l *Ledger) Tokens() []asset.ID {
	return collect(l.tokens)
}

// OwnerTokens lists the assets owner holds a non-zero balance of, ascending.
// Escrowed amounts are not counted.
func (l *Ledger) OwnerTokens(owner common.Address) []asset.ID {
	return collect(l.owned[owner])
}

func (l *Ledger) OwnerTokenByIndex(owner common.Address, index uint64) (asset.ID, error) {
	set := l.owned[owner]
	if set == nil || index >= uint64(set.Len()) {
		return 0, fmt.Errorf("%w: token %d of %s", errs.ErrIndexOutOfRange, index, owner.Hex())
	}
	var (
		found asset.ID
		i     uint64
	)
	set.Ascend(func(id asset.ID) bool {
		if i == index {
			found = id
			return false
		}
		i++
		return true
	})
	return found, nil
}

// Balances returns every non-zero balance ordered by owner bytes, then asset.
func (l *Ledger) Balances() []Balance {
	out := make([]Balance, 0, len(l.balances))
	for k, v := range l.balances {
		out = append(out, Balance{Key: k, Amount: v.Clone()})
	}
	slices.SortFunc(out, func(a, b Balance) int { return compareKeys(a.Key, b.Key) })
	return out
}

// Supplies returns every non-zero supply ordered by asset.
func (l *Ledger) Supplies() []Supply {
	out := make([]Supply, 0, len(l.supply))
	for a, v := range l.supply {
		out = append(out, Supply{Asset: a, Amount: v.Clone()})
	}
	slices.SortFunc(out, func(a, b Supply) int { return cmp.Compare(a.Asset, b.Asset) })
	return out
}

// Restore replaces the ledger contents with persisted state.
func (l *Ledger) Restore(balances []Balance, supply []Supply) {
	*l = *New()
	for _, b := range balances {
		l.setBalance(b.Key, b.Amount)
	}
	for _, s := range supply {
		l.setSupply(s.Asset, s.Amount)
	}
}

func (l *Ledger) setBalance(k Key, v *num.Uint) {
	if v.IsZero() {
		delete(l.balances, k)
		if set := l.owned[k.Owner]; set != nil {
			set.Delete(k.Asset)
			if set.Len() == 0 {
				delete(l.owned, k.Owner)
			}
		}
		return
	}
	l.balances[k] = v.Clone()
	set := l.owned[k.Owner]
	if set == nil {
		set = btree.NewOrderedG[asset.ID](btreeDegree)
		l.owned[k.Owner] = set
	}
	set.ReplaceOrInsert(k.Asset)
}

func (l *Ledger) setSupply(a asset.ID, v *num.Uint) {
	if v.IsZero() {
		delete(l.supply, a)
		l.tokens.Delete(a)
		return
	}
	l.supply[a] = v.Clone()
	l.tokens.ReplaceOrInsert(a)
}

func collect(set *btree.BTreeG[asset.ID]) []asset.ID {
	if set == nil {
		return []asset.ID{}
	}
	out := make([]asset.ID, 0, set.Len())
	set.Ascend(func(id asset.ID) bool {
		out = append(out, id)
		return true
	})
	return out
}
