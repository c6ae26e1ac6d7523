// Package redemption defines the record of a cashback burn.
package redemption

import (
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/types"
)

// Redemption is keyed by (User, Timestamp) and immutable after creation.
type Redemption struct {
	types.Entity
	Address   address.Address `json:"address"`
	User      address.Address `json:"user"`
	Amount    types.Amount    `json:"amount"`
	Timestamp int64           `json:"timestamp"`
}

// ListOpts filters redemption listings.
type ListOpts struct {
	Limit  int
	Offset int
}
