package dex

import (
	"github.com/pkg/errors"

	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
)

var kinds = []struct {
	err  error
	kind string
}{
	{errs.ErrInvalidAmount, "invalid_amount"},
	{errs.ErrInsufficientBalance, "insufficient_balance"},
	{errs.ErrNotFound, "not_found"},
	{errs.ErrNotOwner, "not_owner"},
	{errs.ErrSelfTrade, "self_trade"},
	{errs.ErrIndexOutOfRange, "index_out_of_range"},
	{errs.ErrUnsupportedIdentifier, "unsupported_identifier"},
	{errs.ErrInvalidPair, "invalid_pair"},
	{errs.ErrBalanceOverflow, "balance_overflow"},
	{errs.ErrCounterExhausted, "counter_exhausted"},
}

// ErrorKind names the error kind for metrics labels and API error codes.
// Anything unclassified is "internal".
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
