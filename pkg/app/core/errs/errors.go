// Package errs holds the error kinds returned by the engine and the boundary
// layer. Call sites wrap them with context; callers classify with errors.Is.
package errs

import "github.com/pkg/errors"

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrNotFound              = errors.New("order not found")
	ErrNotOwner              = errors.New("requester is not the order owner")
	ErrSelfTrade             = errors.New("taker is the order owner")
	ErrIndexOutOfRange       = errors.New("index out of range")
	ErrUnsupportedIdentifier = errors.New("unsupported asset identifier")
	ErrInvalidPair           = errors.New("offered and requested assets must differ")
	ErrBalanceOverflow       = errors.New("balance overflow")
	ErrCounterExhausted      = errors.New("order counter exhausted")
)
