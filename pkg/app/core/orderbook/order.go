package orderbook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// Side is descriptive only; matching never looks at it.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(s) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown order side %q", s)
	}
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	parsed, err := ParseSide(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Order is an open offer to swap OfferedAmount of Pair.Offered for
// RequestedAmount of Pair.Requested. Amounts are fixed at creation; an order
// is either taken whole or cancelled.
type Order struct {
	ID              uint64         `json:"id"`
	Owner           common.Address `json:"owner"`
	Pair            asset.Pair     `json:"pair"`
	Type            Side           `json:"type"`
	OfferedAmount   *num.Uint      `json:"offered_amount"`
	RequestedAmount *num.Uint      `json:"requested_amount"`
	CreatedAt       uint64         `json:"created_at"` // unix millis
}

func (o *Order) Clone() *Order {
	c := *o
	if o.OfferedAmount != nil {
		c.OfferedAmount = o.OfferedAmount.Clone()
	}
	if o.RequestedAmount != nil {
		c.RequestedAmount = o.RequestedAmount.Clone()
	}
	return &c
}
