// Package asset defines the engine's plain asset identifier, trading pairs,
// and the tagged identifier accepted at the boundary.
package asset

import "fmt"

// ID is the engine-side identifier of a fungible token class.
type ID uint32

func (id ID) String() string {
	return fmt.Sprintf("%d", uint32(id))
}

// Pair is an ordered (offered, requested) tuple. (A,B) and (B,A) are
// different books.
type Pair struct {
	Offered   ID `json:"offered"`
	Requested ID `json:"requested"`
}

func NewPair(offered, requested ID) Pair {
	return Pair{Offered: offered, Requested: requested}
}

// Reverse returns the complementary book.
func (p Pair) Reverse() Pair {
	return Pair{Offered: p.Requested, Requested: p.Offered}
}

func (p Pair) String() string {
	return fmt.Sprintf("%d/%d", p.Offered, p.Requested)
}
