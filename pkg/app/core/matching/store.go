package matching

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/ledger"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// Store persists engine state. Each mutating call writes exactly one batch;
// a call only touches memory after Commit succeeds.
type Store interface {
	NewBatch() Batch
	Load() (*Snapshot, error)
}

// Batch collects the writes of one call. Zero balances and supplies are
// deletes, as are empty index sequences. Close must be safe after Commit.
type Batch interface {
	SetBalance(k ledger.Key, amount *num.Uint) error
	SetSupply(a asset.ID, amount *num.Uint) error
	SaveOrder(o *orderbook.Order) error
	DeleteOrder(id uint64) error
	SetNextOrderID(next uint64) error
	SetPairIndex(p asset.Pair, ids []uint64) error
	SetOwnerIndex(owner common.Address, ids []uint64) error
	Commit() error
	Close() error
}

// Snapshot is the persisted state the engine restores from.
type Snapshot struct {
	Balances    []ledger.Balance
	Supplies    []ledger.Supply
	Orders      []*orderbook.Order
	NextOrderID uint64
	Layout      orderbook.Layout
}

type nopStore struct{}

func (nopStore) NewBatch() Batch          { return nopBatch{} }
func (nopStore) Load() (*Snapshot, error) { return &Snapshot{}, nil }

type nopBatch struct{}

func (nopBatch) SetBalance(ledger.Key, *num.Uint) error       { return nil }
func (nopBatch) SetSupply(asset.ID, *num.Uint) error          { return nil }
func (nopBatch) SaveOrder(*orderbook.Order) error             { return nil }
func (nopBatch) DeleteOrder(uint64) error                     { return nil }
func (nopBatch) SetNextOrderID(uint64) error                  { return nil }
func (nopBatch) SetPairIndex(asset.Pair, []uint64) error      { return nil }
func (nopBatch) SetOwnerIndex(common.Address, []uint64) error { return nil }
func (nopBatch) Commit() error                                { return nil }
func (nopBatch) Close() error                                 { return nil }
