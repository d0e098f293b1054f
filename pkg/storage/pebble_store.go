package storage

import (
	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/ledger"
	"github.com/uhyunpark/hyperdex/pkg/app/core/matching"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// PebbleStore persists engine state. Every engine call commits one synced
// batch, so a crash leaves either all of a call's writes or none.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20), // 64MB
		MemTableSize: 32 << 20,
		MaxOpenFiles: 1000,
		BytesPerSync: 512 << 10,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble db at %s", path)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

func (s *PebbleStore) NewBatch() matching.Batch {
	return &pebbleBatch{b: s.db.NewBatch()}
}

// Load reads the full persisted state.
func (s *PebbleStore) Load() (*matching.Snapshot, error) {
	snap := &matching.Snapshot{}

	err := s.scan([]byte(prefixBalance), func(k, v []byte) error {
		key, err := balanceKeyFromBytes(k)
		if err != nil {
			return err
		}
		amount, err := decodeAmount(v)
		if err != nil {
			return errors.Wrapf(err, "balance %s", key)
		}
		snap.Balances = append(snap.Balances, ledger.Balance{Key: key, Amount: amount})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.scan([]byte(prefixSupply), func(k, v []byte) error {
		a, err := supplyKeyFromBytes(k)
		if err != nil {
			return err
		}
		amount, err := decodeAmount(v)
		if err != nil {
			return errors.Wrapf(err, "supply %d", a)
		}
		snap.Supplies = append(snap.Supplies, ledger.Supply{Asset: a, Amount: amount})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.scan([]byte(prefixOrder), func(_, v []byte) error {
		o, err := decodeOrder(v)
		if err != nil {
			return err
		}
		snap.Orders = append(snap.Orders, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap.Layout = orderbook.Layout{
		ByPair:  make(map[asset.Pair][]uint64),
		ByOwner: make(map[common.Address][]uint64),
	}
	err = s.scan([]byte(prefixPairIx), func(k, v []byte) error {
		p, err := pairIndexKeyFromBytes(k)
		if err != nil {
			return err
		}
		ids, err := decodeIDs(v)
		if err != nil {
			return errors.Wrapf(err, "pair index %s", p)
		}
		snap.Layout.ByPair[p] = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.scan([]byte(prefixOwnerIx), func(k, v []byte) error {
		owner, err := ownerIndexKeyFromBytes(k)
		if err != nil {
			return err
		}
		ids, err := decodeIDs(v)
		if err != nil {
			return errors.Wrapf(err, "owner index %s", owner.Hex())
		}
		snap.Layout.ByOwner[owner] = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	val, closer, err := s.db.Get([]byte(keyNextOrder))
	switch {
	case err == pebble.ErrNotFound:
	case err != nil:
		return nil, errors.Wrap(err, "get next order id")
	default:
		defer closer.Close()
		next, err := decodeUint64(val)
		if err != nil {
			return nil, errors.Wrap(err, "decode next order id")
		}
		snap.NextOrderID = next
	}

	return snap, nil
}

// scan visits every key under prefix in key order.
func (s *PebbleStore) scan(prefix []byte, fn func(k, v []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return errors.Wrapf(err, "iterate %s", prefix)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

type pebbleBatch struct {
	b *pebble.Batch
}

func (pb *pebbleBatch) SetBalance(k ledger.Key, amount *num.Uint) error {
	if amount.IsZero() {
		return pb.b.Delete(balanceKey(k), nil)
	}
	return pb.b.Set(balanceKey(k), encodeAmount(amount), nil)
}

func (pb *pebbleBatch) SetSupply(a asset.ID, amount *num.Uint) error {
	if amount.IsZero() {
		return pb.b.Delete(supplyKey(a), nil)
	}
	return pb.b.Set(supplyKey(a), encodeAmount(amount), nil)
}

func (pb *pebbleBatch) SaveOrder(o *orderbook.Order) error {
	data, err := encodeOrder(o)
	if err != nil {
		return err
	}
	return pb.b.Set(orderKey(o.ID), data, nil)
}

func (pb *pebbleBatch) DeleteOrder(id uint64) error {
	return pb.b.Delete(orderKey(id), nil)
}

func (pb *pebbleBatch) SetNextOrderID(next uint64) error {
	return pb.b.Set([]byte(keyNextOrder), encodeUint64(next), nil)
}

func (pb *pebbleBatch) SetPairIndex(p asset.Pair, ids []uint64) error {
	if len(ids) == 0 {
		return pb.b.Delete(pairIndexKey(p), nil)
	}
	return pb.b.Set(pairIndexKey(p), encodeIDs(ids), nil)
}

func (pb *pebbleBatch) SetOwnerIndex(owner common.Address, ids []uint64) error {
	if len(ids) == 0 {
		return pb.b.Delete(ownerIndexKey(owner), nil)
	}
	return pb.b.Set(ownerIndexKey(owner), encodeIDs(ids), nil)
}

func (pb *pebbleBatch) Commit() error {
	return errors.Wrap(pb.b.Commit(pebble.Sync), "commit batch")
}

func (pb *pebbleBatch) Close() error { return pb.b.Close() }

var _ matching.Store = (*PebbleStore)(nil)
