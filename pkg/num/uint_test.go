package num_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hyperdex/pkg/num"
)

func TestUintFromString(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "zero", in: "0"},
		{name: "u64 max", in: "18446744073709551615"},
		{name: "u128 max", in: "340282366920938463463374607431768211455"},
		{name: "u128 max plus one", in: "340282366920938463463374607431768211456", wantErr: num.ErrOverflow},
		{name: "negative", in: "-1", wantErr: num.ErrInvalidValue},
		{name: "empty", in: "", wantErr: num.ErrInvalidValue},
		{name: "garbage", in: "12ab", wantErr: num.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := num.UintFromString(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, v.String())
		})
	}
}

func TestAddCheckedOverflow(t *testing.T) {
	max := num.MaxUint()
	z := num.NewUint(7)

	_, ok := z.AddChecked(max, num.NewUint(1))
	assert.False(t, ok)
	assert.Equal(t, "7", z.String(), "failed add must not touch the receiver")

	_, ok = z.AddChecked(max, num.Zero())
	assert.True(t, ok)
	assert.True(t, z.EQ(max))
}

func TestSubCheckedUnderflow(t *testing.T) {
	z := num.NewUint(5)
	_, ok := z.SubChecked(num.NewUint(3), num.NewUint(4))
	assert.False(t, ok)
	assert.Equal(t, "5", z.String())

	_, ok = z.SubChecked(num.NewUint(10), num.NewUint(4))
	assert.True(t, ok)
	assert.Equal(t, "6", z.String())
}

func TestBytesRoundTripKeepsWidth(t *testing.T) {
	v := num.MustFromString("340282366920938463463374607431768211455")
	b := v.Bytes()
	require.Len(t, b, 16)

	back, err := num.UintFromBytes(b)
	require.NoError(t, err)
	assert.True(t, back.EQ(v))

	_, err = num.UintFromBytes(b[:8])
	assert.ErrorIs(t, err, num.ErrInvalidValue)
}

func TestJSONAcceptsQuotedAndBare(t *testing.T) {
	var v struct {
		A *num.Uint `json:"a"`
		B *num.Uint `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"100","b":42}`), &v))
	assert.Equal(t, "100", v.A.String())
	assert.Equal(t, "42", v.B.String())

	out, err := json.Marshal(v.A)
	require.NoError(t, err)
	assert.Equal(t, `"100"`, string(out))
}
