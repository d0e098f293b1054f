// Package num provides the unsigned 128-bit quantity used for balances and
// order amounts. Arithmetic is checked: results that leave the 128-bit range
// are reported instead of wrapping.
package num

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// MaxBits is the width of every quantity held by the ledger.
const MaxBits = 128

var (
	ErrOverflow     = errors.New("value exceeds 128 bits")
	ErrInvalidValue = errors.New("invalid unsigned integer")
)

// Uint A wrapper for a 128-bit unsigned int backed by uint256
type Uint struct {
	u uint256.Int
}

// NewUint creates a new Uint with the value of the
// uint64 passed as a parameter.
func NewUint(val uint64) *Uint {
	return &Uint{*uint256.NewInt(val)}
}

// Zero returns a fresh zero value.
func Zero() *Uint {
	return &Uint{}
}

// MaxUint returns 2^128 - 1.
func MaxUint() *Uint {
	z := &Uint{}
	z.u.Lsh(uint256.NewInt(1), MaxBits)
	z.u.SubUint64(&z.u, 1)
	return z
}

// UintFromString parses a base-10 string. Values wider than 128 bits are
// rejected with ErrOverflow.
func UintFromString(s string) (*Uint, error) {
	if s == "" {
		return nil, ErrInvalidValue
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidValue, "%q", s)
	}
	if v.BitLen() > MaxBits {
		return nil, errors.Wrapf(ErrOverflow, "%q", s)
	}
	return &Uint{*v}, nil
}

// MustFromString is UintFromString for constants and tests.
func MustFromString(s string) *Uint {
	u, err := UintFromString(s)
	if err != nil {
		panic(err)
	}
	return u
}

// UintFromBytes decodes the 16-byte big-endian form written by Bytes.
func UintFromBytes(b []byte) (*Uint, error) {
	if len(b) != MaxBits/8 {
		return nil, errors.Wrapf(ErrInvalidValue, "want %d bytes, got %d", MaxBits/8, len(b))
	}
	z := &Uint{}
	z.u.SetBytes(b)
	return z, nil
}

// Bytes returns the 16-byte big-endian encoding.
func (u *Uint) Bytes() []byte {
	full := u.u.Bytes32()
	out := make([]byte, MaxBits/8)
	copy(out, full[32-MaxBits/8:])
	return out
}

func (u *Uint) Clone() *Uint {
	return &Uint{u.u}
}

func (u *Uint) IsZero() bool { return u.u.IsZero() }

func (u *Uint) EQ(o *Uint) bool  { return u.u.Eq(&o.u) }
func (u *Uint) LT(o *Uint) bool  { return u.u.Lt(&o.u) }
func (u *Uint) GT(o *Uint) bool  { return u.u.Gt(&o.u) }
func (u *Uint) LTE(o *Uint) bool { return !u.u.Gt(&o.u) }
func (u *Uint) GTE(o *Uint) bool { return !u.u.Lt(&o.u) }

// Uint64 returns the low 64 bits.
func (u *Uint) Uint64() uint64 { return u.u.Uint64() }

// AddChecked sets z = x + y and reports false if the sum does not fit in
// 128 bits. z is left untouched when the check fails.
func (z *Uint) AddChecked(x, y *Uint) (*Uint, bool) {
	var sum uint256.Int
	if _, overflow := sum.AddOverflow(&x.u, &y.u); overflow || sum.BitLen() > MaxBits {
		return z, false
	}
	z.u = sum
	return z, true
}

// SubChecked sets z = x - y and reports false on underflow.
// z is left untouched when the check fails.
func (z *Uint) SubChecked(x, y *Uint) (*Uint, bool) {
	if x.u.Lt(&y.u) {
		return z, false
	}
	var diff uint256.Int
	diff.Sub(&x.u, &y.u)
	z.u = diff
	return z, true
}

// Add sets z = x + y in the full 256-bit domain. Only meant for audit sums
// over many balances, where intermediate totals may pass 128 bits.
func (z *Uint) Add(x, y *Uint) *Uint {
	z.u.Add(&x.u, &y.u)
	return z
}

func (u *Uint) String() string {
	return u.u.Dec()
}

// Format lets %d and %s print the decimal value.
func (u *Uint) Format(s fmt.State, verb rune) {
	_, _ = s.Write([]byte(u.String()))
}

// MarshalJSON encodes as a quoted decimal string; JSON numbers cannot carry
// 128-bit integers safely.
func (u *Uint) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(u.String())), nil
}

func (u *Uint) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		// accept bare numbers too
		s = string(b)
	}
	v, err := UintFromString(s)
	if err != nil {
		return err
	}
	u.u = v.u
	return nil
}
