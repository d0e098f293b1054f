package storage

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/events"
	"github.com/uhyunpark/hyperdex/pkg/app/core/ledger"
	"github.com/uhyunpark/hyperdex/pkg/app/core/matching"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

var (
	maker = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")
	taker = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestBalanceKeyRoundTrip(t *testing.T) {
	k := ledger.Key{Owner: maker, Asset: 4294967295}
	raw := balanceKey(k)
	assert.Equal(t, "bal:0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0:4294967295", string(raw))

	back, err := balanceKeyFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, k, back)

	_, err = balanceKeyFromBytes([]byte("bal:nope:1"))
	assert.Error(t, err)
}

func TestOrderKeysSortNumerically(t *testing.T) {
	assert.Less(t, string(orderKey(9)), string(orderKey(10)))
	assert.Equal(t, "ord;", string(keyUpperBound([]byte(prefixOrder))))
}

func TestIndexKeysRoundTrip(t *testing.T) {
	p := asset.NewPair(7, 4294967295)
	raw := pairIndexKey(p)
	assert.Equal(t, "ipair:0000000007:4294967295", string(raw))
	back, err := pairIndexKeyFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, p, back)

	owner, err := ownerIndexKeyFromBytes(ownerIndexKey(maker))
	require.NoError(t, err)
	assert.Equal(t, maker, owner)

	ids, err := decodeIDs(encodeIDs([]uint64{3, 0, 1 << 40}))
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 0, 1 << 40}, ids)
	_, err = decodeIDs([]byte{1, 2, 3})
	assert.Error(t, err)
}

func openPebble(t *testing.T, dir string) *PebbleStore {
	t.Helper()
	s, err := NewPebbleStore(dir)
	require.NoError(t, err)
	return s
}

func TestPebbleBatchAndLoad(t *testing.T) {
	s := openPebble(t, t.TempDir())
	defer s.Close()

	o := &orderbook.Order{
		ID: 3, Owner: maker, Pair: asset.NewPair(1, 2), Type: orderbook.Buy,
		OfferedAmount: num.NewUint(10), RequestedAmount: num.MaxUint(), CreatedAt: 42,
	}

	b := s.NewBatch()
	require.NoError(t, b.SetBalance(ledger.Key{Owner: maker, Asset: 1}, num.NewUint(5)))
	require.NoError(t, b.SetBalance(ledger.Key{Owner: taker, Asset: 2}, num.NewUint(7)))
	require.NoError(t, b.SetSupply(1, num.NewUint(15)))
	require.NoError(t, b.SaveOrder(o))
	require.NoError(t, b.SetNextOrderID(4))
	require.NoError(t, b.SetPairIndex(o.Pair, []uint64{3}))
	require.NoError(t, b.SetOwnerIndex(maker, []uint64{3}))
	require.NoError(t, b.Commit())
	require.NoError(t, b.Close())

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, snap.Balances, 2)
	require.Len(t, snap.Supplies, 1)
	assert.Equal(t, "15", snap.Supplies[0].Amount.String())
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, o, snap.Orders[0])
	assert.Equal(t, uint64(4), snap.NextOrderID)
	assert.Equal(t, []uint64{3}, snap.Layout.ByPair[o.Pair])
	assert.Equal(t, []uint64{3}, snap.Layout.ByOwner[maker])

	// zero writes delete
	b = s.NewBatch()
	require.NoError(t, b.SetBalance(ledger.Key{Owner: maker, Asset: 1}, num.Zero()))
	require.NoError(t, b.DeleteOrder(3))
	require.NoError(t, b.SetPairIndex(o.Pair, nil))
	require.NoError(t, b.SetOwnerIndex(maker, []uint64{}))
	require.NoError(t, b.Commit())
	require.NoError(t, b.Close())

	snap, err = s.Load()
	require.NoError(t, err)
	assert.Len(t, snap.Balances, 1)
	assert.Empty(t, snap.Orders)
	assert.Empty(t, snap.Layout.ByPair)
	assert.Empty(t, snap.Layout.ByOwner)
}

func TestUncommittedBatchIsDiscarded(t *testing.T) {
	s := openPebble(t, t.TempDir())
	defer s.Close()

	b := s.NewBatch()
	require.NoError(t, b.SetSupply(1, num.NewUint(1)))
	require.NoError(t, b.Close())

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Supplies)
	assert.Zero(t, snap.NextOrderID)
}

func runWorkload(t *testing.T, e *matching.Engine) {
	t.Helper()
	_, err := e.Deposit(maker, 1, num.NewUint(100))
	require.NoError(t, err)
	_, err = e.Deposit(taker, 2, num.NewUint(100))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := e.MakeOrder(maker, asset.NewPair(1, 2), num.NewUint(10), num.NewUint(3), orderbook.Sell)
		require.NoError(t, err)
	}
	require.NoError(t, e.TakeOrder(2, taker))
	require.NoError(t, e.CancelOrder(0, maker))
	_, err = e.Withdraw(taker, 1, num.NewUint(5))
	require.NoError(t, err)
}

func orderIDs(orders []*orderbook.Order) []uint64 {
	out := make([]uint64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestEngineSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	s := openPebble(t, dir)
	e := matching.NewEngine(matching.Config{Store: s})
	runWorkload(t, e)
	want := e.StateHash()
	require.NoError(t, s.Close())

	s = openPebble(t, dir)
	defer s.Close()
	restored := matching.NewEngine(matching.Config{Store: s})
	require.NoError(t, restored.Restore())
	assert.Equal(t, want, restored.StateHash())

	// swap compaction left [3 1]; counter order would read [1 3]
	assert.Equal(t, []uint64{3, 1}, orderIDs(restored.UserOrders(maker)))
	assert.Equal(t, []uint64{3, 1}, orderIDs(restored.PairOrders(asset.NewPair(1, 2))))
	first, err := restored.UserOrderByIndex(maker, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), first.ID)

	id, err := restored.MakeOrder(maker, asset.NewPair(1, 2), num.NewUint(1), num.NewUint(1), orderbook.Sell)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id)
}

func TestInMemoryStoreRestore(t *testing.T) {
	s := NewInMemoryStore()
	e := matching.NewEngine(matching.Config{Store: s, Compaction: orderbook.StableRemove})
	runWorkload(t, e)

	restored := matching.NewEngine(matching.Config{Store: s, Compaction: orderbook.StableRemove})
	require.NoError(t, restored.Restore())
	assert.Equal(t, e.StateHash(), restored.StateHash())
	assert.Equal(t, []uint64{1, 3}, orderIDs(restored.UserOrders(maker)))
	assert.Equal(t, orderIDs(e.PairOrders(asset.NewPair(1, 2))), orderIDs(restored.PairOrders(asset.NewPair(1, 2))))
}

func TestInMemoryStoreDropsEmptySequences(t *testing.T) {
	s := NewInMemoryStore()
	e := matching.NewEngine(matching.Config{Store: s})
	_, err := e.Deposit(maker, 1, num.NewUint(10))
	require.NoError(t, err)
	id, err := e.MakeOrder(maker, asset.NewPair(1, 2), num.NewUint(10), num.NewUint(1), orderbook.Buy)
	require.NoError(t, err)

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, snap.Layout.ByOwner[maker])

	require.NoError(t, e.CancelOrder(id, maker))
	snap, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Layout.ByOwner)
	assert.Empty(t, snap.Layout.ByPair)
}

func TestFileJournalCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "journal", "events.jsonl")
	j, err := NewFileJournal(path, zap.NewNop())
	require.NoError(t, err)
	defer j.Close()

	j.Emit(events.OrderCanceled{OrderID: 1})
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := NewFileJournal(path, zap.NewNop())
	require.NoError(t, err)

	e := matching.NewEngine(matching.Config{Sink: j})
	_, err = e.Deposit(maker, 1, num.NewUint(10))
	require.NoError(t, err)
	_, err = e.Withdraw(maker, 1, num.NewUint(10))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 2)
	want, err := events.Encode(events.Withdraw{Account: maker, Asset: 1, Amount: num.NewUint(10)})
	require.NoError(t, err)
	assert.JSONEq(t, string(want), lines[1])
}
