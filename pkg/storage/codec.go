package storage

import (
	"encoding/binary"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

func encodeUint64(v uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], v)
	return k[:]
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errors.Errorf("want 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// encodeIDs packs an index sequence as consecutive big-endian uint64s.
func encodeIDs(ids []uint64) []byte {
	out := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint64(out[8*i:], id)
	}
	return out
}

func decodeIDs(b []byte) ([]uint64, error) {
	if len(b)%8 != 0 {
		return nil, errors.Errorf("id list length %d is not a multiple of 8", len(b))
	}
	ids := make([]uint64, len(b)/8)
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(b[8*i:])
	}
	return ids, nil
}

func encodeAmount(v *num.Uint) []byte { return v.Bytes() }

func decodeAmount(b []byte) (*num.Uint, error) {
	return num.UintFromBytes(b)
}

func encodeOrder(o *orderbook.Order) ([]byte, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal order %d", o.ID)
	}
	return data, nil
}

func decodeOrder(b []byte) (*orderbook.Order, error) {
	var o orderbook.Order
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, errors.Wrap(err, "unmarshal order")
	}
	return &o, nil
}
