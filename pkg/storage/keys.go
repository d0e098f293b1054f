package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/ledger"
)

// Key schema
//
//   bal:<address>:<asset>        → 16-byte big-endian balance
//   sup:<asset>                  → 16-byte big-endian supply
//   ord:<order id>               → JSON order
//   meta:next_order              → 8-byte big-endian counter
//   ipair:<offered>:<requested>  → pair index sequence, 8 bytes per id
//   iown:<address>               → owner index sequence, 8 bytes per id
//
// Numbers are zero-padded so lexicographic order matches numeric order.

const (
	prefixBalance = "bal:"
	prefixSupply  = "sup:"
	prefixOrder   = "ord:"
	keyNextOrder  = "meta:next_order"
	prefixPairIx  = "ipair:"
	prefixOwnerIx = "iown:"
)

// balanceKey returns the key for one balance slot
// Format: "bal:{address}:{asset}"
// Example: "bal:0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0:0000000007"
func balanceKey(k ledger.Key) []byte {
	return []byte(fmt.Sprintf("%s%s:%010d", prefixBalance, k.Owner.Hex(), uint32(k.Asset)))
}

// supplyKey returns the key for an asset's supply
// Format: "sup:{asset}"
func supplyKey(a asset.ID) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefixSupply, uint32(a)))
}

// orderKey returns the key for an order
// Format: "ord:{id}", id zero-padded to 20 digits
func orderKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

// pairIndexKey returns the key for a pair's order sequence
// Format: "ipair:{offered}:{requested}"
func pairIndexKey(p asset.Pair) []byte {
	return []byte(fmt.Sprintf("%s%010d:%010d", prefixPairIx, uint32(p.Offered), uint32(p.Requested)))
}

// ownerIndexKey returns the key for an owner's order sequence
// Format: "iown:{address}"
func ownerIndexKey(owner common.Address) []byte {
	return []byte(prefixOwnerIx + owner.Hex())
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
// Example: prefix "bal:" -> upper bound "bal;" (next byte after ':')
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// balanceKeyFromBytes is the inverse of balanceKey
func balanceKeyFromBytes(key []byte) (ledger.Key, error) {
	rest := strings.TrimPrefix(string(key), prefixBalance)
	addrHex, assetStr, ok := strings.Cut(rest, ":")
	if !ok || !common.IsHexAddress(addrHex) {
		return ledger.Key{}, fmt.Errorf("invalid balance key: %q", key)
	}
	a, err := strconv.ParseUint(assetStr, 10, 32)
	if err != nil {
		return ledger.Key{}, fmt.Errorf("invalid asset in key %q: %w", key, err)
	}
	return ledger.Key{Owner: common.HexToAddress(addrHex), Asset: asset.ID(a)}, nil
}

// supplyKeyFromBytes is the inverse of supplyKey
func supplyKeyFromBytes(key []byte) (asset.ID, error) {
	a, err := strconv.ParseUint(strings.TrimPrefix(string(key), prefixSupply), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid supply key %q: %w", key, err)
	}
	return asset.ID(a), nil
}

// pairIndexKeyFromBytes is the inverse of pairIndexKey
func pairIndexKeyFromBytes(key []byte) (asset.Pair, error) {
	rest := strings.TrimPrefix(string(key), prefixPairIx)
	offStr, reqStr, ok := strings.Cut(rest, ":")
	if !ok {
		return asset.Pair{}, fmt.Errorf("invalid pair index key: %q", key)
	}
	off, err := strconv.ParseUint(offStr, 10, 32)
	if err != nil {
		return asset.Pair{}, fmt.Errorf("invalid offered asset in key %q: %w", key, err)
	}
	req, err := strconv.ParseUint(reqStr, 10, 32)
	if err != nil {
		return asset.Pair{}, fmt.Errorf("invalid requested asset in key %q: %w", key, err)
	}
	return asset.NewPair(asset.ID(off), asset.ID(req)), nil
}

// ownerIndexKeyFromBytes is the inverse of ownerIndexKey
func ownerIndexKeyFromBytes(key []byte) (common.Address, error) {
	addrHex := strings.TrimPrefix(string(key), prefixOwnerIx)
	if !common.IsHexAddress(addrHex) {
		return common.Address{}, fmt.Errorf("invalid owner index key: %q", key)
	}
	return common.HexToAddress(addrHex), nil
}
