package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func n(v uint64) *num.Uint { return num.NewUint(v) }

func TestDepositWithdraw(t *testing.T) {
	l := New()

	bal, err := l.Deposit(alice, 1, n(100))
	require.NoError(t, err)
	assert.Equal(t, "100", bal.String())
	assert.Equal(t, "100", l.Supply(1).String())

	bal, err = l.Withdraw(alice, 1, n(40))
	require.NoError(t, err)
	assert.Equal(t, "60", bal.String())
	assert.Equal(t, "60", l.Supply(1).String())

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"zero deposit", func() error { _, err := l.Deposit(alice, 1, n(0)); return err }, errs.ErrInvalidAmount},
		{"zero withdraw", func() error { _, err := l.Withdraw(alice, 1, n(0)); return err }, errs.ErrInvalidAmount},
		{"withdraw too much", func() error { _, err := l.Withdraw(alice, 1, n(61)); return err }, errs.ErrInsufficientBalance},
		{"withdraw unknown asset", func() error { _, err := l.Withdraw(alice, 9, n(1)); return err }, errs.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.wantErr)
			assert.Equal(t, "60", l.BalanceOf(alice, 1).String())
			assert.Equal(t, "60", l.Supply(1).String())
		})
	}
}

func TestDepositOverflow(t *testing.T) {
	l := New()
	_, err := l.Deposit(alice, 1, num.MaxUint())
	require.NoError(t, err)

	_, err = l.Deposit(alice, 1, n(1))
	assert.ErrorIs(t, err, errs.ErrBalanceOverflow)
	assert.True(t, l.BalanceOf(alice, 1).EQ(num.MaxUint()))
}

func TestTransferIsAtomic(t *testing.T) {
	l := New()
	_, err := l.Deposit(alice, 1, n(10))
	require.NoError(t, err)

	require.NoError(t, l.Transfer(alice, bob, 1, n(4)))
	assert.Equal(t, "6", l.BalanceOf(alice, 1).String())
	assert.Equal(t, "4", l.BalanceOf(bob, 1).String())

	err = l.Transfer(alice, bob, 1, n(7))
	assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
	assert.Equal(t, "6", l.BalanceOf(alice, 1).String())
	assert.Equal(t, "4", l.BalanceOf(bob, 1).String())
	assert.Equal(t, "10", l.Supply(1).String())
}

func TestBatchDiscardLeavesLedgerUntouched(t *testing.T) {
	l := New()
	_, err := l.Deposit(alice, 1, n(10))
	require.NoError(t, err)

	b := l.NewBatch()
	_, err = b.Debit(alice, 1, n(10))
	require.NoError(t, err)
	_, err = b.Credit(bob, 2, n(5))
	require.NoError(t, err)
	assert.True(t, b.Balance(alice, 1).IsZero())
	assert.Equal(t, "5", b.Balance(bob, 2).String())

	// dropped without Commit
	assert.Equal(t, "10", l.BalanceOf(alice, 1).String())
	assert.True(t, l.BalanceOf(bob, 2).IsZero())
}

func TestBatchDepositWithdrawStagePairedChanges(t *testing.T) {
	l := New()
	b := l.NewBatch()

	bal, err := b.Deposit(alice, 1, n(10))
	require.NoError(t, err)
	assert.Equal(t, "10", bal.String())
	bal, err = b.Withdraw(alice, 1, n(3))
	require.NoError(t, err)
	assert.Equal(t, "7", bal.String())

	_, err = b.Deposit(alice, 1, n(0))
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	_, err = b.Withdraw(alice, 1, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	_, err = b.Withdraw(bob, 1, n(1))
	assert.ErrorIs(t, err, errs.ErrInsufficientBalance)

	// balance and supply move together, and only on Commit
	require.Len(t, b.Changes(), 1, "a failed debit stages nothing")
	require.Len(t, b.SupplyChanges(), 1)
	assert.Equal(t, "7", b.SupplyChanges()[0].Amount.String())
	assert.True(t, l.Supply(1).IsZero())

	b.Commit()
	assert.Equal(t, "7", l.BalanceOf(alice, 1).String())
	assert.Equal(t, "7", l.Supply(1).String())
}

func TestBatchChangesAreOrdered(t *testing.T) {
	l := New()
	b := l.NewBatch()
	_, _ = b.Credit(bob, 3, n(1))
	_, _ = b.Credit(alice, 7, n(1))
	_, _ = b.Credit(alice, 2, n(1))

	changes := b.Changes()
	require.Len(t, changes, 3)
	assert.Equal(t, Key{alice, 2}, changes[0].Key)
	assert.Equal(t, Key{alice, 7}, changes[1].Key)
	assert.Equal(t, Key{bob, 3}, changes[2].Key)
}

func TestTokenSets(t *testing.T) {
	l := New()
	for _, a := range []asset.ID{9, 2, 5} {
		_, err := l.Deposit(alice, a, n(10))
		require.NoError(t, err)
	}
	_, err := l.Deposit(bob, 7, n(1))
	require.NoError(t, err)

	assert.Equal(t, []asset.ID{2, 5, 7, 9}, l.Tokens())
	assert.Equal(t, []asset.ID{2, 5, 9}, l.OwnerTokens(alice))

	id, err := l.OwnerTokenByIndex(alice, 1)
	require.NoError(t, err)
	assert.Equal(t, asset.ID(5), id)

	_, err = l.OwnerTokenByIndex(alice, 3)
	assert.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	_, err = l.OwnerTokenByIndex(common.Address{}, 0)
	assert.ErrorIs(t, err, errs.ErrIndexOutOfRange)

	// draining a balance drops the asset from the owner's set
	_, err = l.Withdraw(alice, 5, n(10))
	require.NoError(t, err)
	assert.Equal(t, []asset.ID{2, 9}, l.OwnerTokens(alice))
	assert.Equal(t, []asset.ID{2, 7, 9}, l.Tokens())
	assert.Empty(t, l.OwnerTokens(common.Address{}))
}

func TestRestore(t *testing.T) {
	src := New()
	_, _ = src.Deposit(alice, 1, n(10))
	_, _ = src.Deposit(bob, 2, n(20))

	dst := New()
	dst.Restore(src.Balances(), src.Supplies())
	assert.Equal(t, src.Balances(), dst.Balances())
	assert.Equal(t, src.Supplies(), dst.Supplies())
	assert.Equal(t, []asset.ID{1, 2}, dst.Tokens())
	assert.Equal(t, []asset.ID{2}, dst.OwnerTokens(bob))
}
