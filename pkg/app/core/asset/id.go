package asset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// Kind tags the variant carried by an Id.
type Kind uint8

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindU128
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindU128:
		return "u128"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

func kindFromString(s string) (Kind, bool) {
	for k := KindU8; k <= KindBytes; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Id is the multi-token identifier used by callers. Only the U32 variant maps
// onto an engine ID; variants are distinct identifiers even when their
// numeric value would fit, so U8(5) is not the same token as U32(5).
type Id struct {
	kind  Kind
	value *num.Uint // numeric variants
	raw   []byte    // KindBytes
}

func U8(v uint8) Id { return Id{kind: KindU8, value: num.NewUint(uint64(v))} }

func U16(v uint16) Id { return Id{kind: KindU16, value: num.NewUint(uint64(v))} }

func U32(v uint32) Id { return Id{kind: KindU32, value: num.NewUint(uint64(v))} }

func U64(v uint64) Id { return Id{kind: KindU64, value: num.NewUint(v)} }

func U128(v *num.Uint) Id { return Id{kind: KindU128, value: v.Clone()} }

func Bytes(b []byte) Id { return Id{kind: KindBytes, raw: append([]byte(nil), b...)} }

// FromID wraps an engine ID in the only variant that reduces back to it.
func FromID(id ID) Id { return U32(uint32(id)) }

// DefaultId is the zero identifier, U8(0).
func DefaultId() Id { return U8(0) }

func (i Id) Kind() Kind { return i.kind }

// Reduce maps the identifier onto the engine's ID. Every variant other than
// U32 fails with ErrUnsupportedIdentifier.
func (i Id) Reduce() (ID, error) {
	if i.kind != KindU32 || i.value == nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrUnsupportedIdentifier, i)
	}
	v := i.value.Uint64()
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s", errs.ErrUnsupportedIdentifier, i)
	}
	return ID(v), nil
}

// ReducePair reduces both sides of a pair, failing on the first side that
// cannot be reduced.
func ReducePair(offered, requested Id) (Pair, error) {
	a, err := offered.Reduce()
	if err != nil {
		return Pair{}, err
	}
	b, err := requested.Reduce()
	if err != nil {
		return Pair{}, err
	}
	return NewPair(a, b), nil
}

func (i Id) Equal(o Id) bool {
	if i.kind != o.kind {
		return false
	}
	if i.kind == KindBytes {
		return string(i.raw) == string(o.raw)
	}
	if i.value == nil || o.value == nil {
		return i.value == o.value
	}
	return i.value.EQ(o.value)
}

func (i Id) valueString() string {
	if i.kind == KindBytes {
		return hexutil.Encode(i.raw)
	}
	if i.value == nil {
		return "0"
	}
	return i.value.String()
}

// String renders "kind:value", e.g. "u32:7" or "bytes:0x0102".
func (i Id) String() string {
	return i.kind.String() + ":" + i.valueString()
}

// ParseId accepts "kind:value". A bare number is read as U32, which is what
// almost every caller means.
func ParseId(s string) (Id, error) {
	kindStr, value, found := strings.Cut(s, ":")
	if !found {
		kindStr, value = KindU32.String(), s
	}
	kind, ok := kindFromString(strings.ToLower(kindStr))
	if !ok {
		return Id{}, fmt.Errorf("unknown id kind %q", kindStr)
	}
	return newId(kind, value)
}

func newId(kind Kind, value string) (Id, error) {
	if kind == KindBytes {
		raw, err := hexutil.Decode(value)
		if err != nil {
			return Id{}, fmt.Errorf("invalid bytes id %q: %w", value, err)
		}
		return Bytes(raw), nil
	}

	bits := map[Kind]int{KindU8: 8, KindU16: 16, KindU32: 32, KindU64: 64}[kind]
	if bits > 0 {
		v, err := strconv.ParseUint(value, 10, bits)
		if err != nil {
			return Id{}, fmt.Errorf("invalid %s id %q: %w", kind, value, err)
		}
		return Id{kind: kind, value: num.NewUint(v)}, nil
	}

	v, err := num.UintFromString(value)
	if err != nil {
		return Id{}, fmt.Errorf("invalid u128 id %q: %w", value, err)
	}
	return U128(v), nil
}

type idJSON struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (i Id) MarshalJSON() ([]byte, error) {
	return json.Marshal(idJSON{Kind: i.kind.String(), Value: i.valueString()})
}

func (i *Id) UnmarshalJSON(b []byte) error {
	var raw idJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kind, ok := kindFromString(strings.ToLower(raw.Kind))
	if !ok {
		return fmt.Errorf("unknown id kind %q", raw.Kind)
	}
	parsed, err := newId(kind, raw.Value)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
