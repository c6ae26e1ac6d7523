// Package ledgerstate defines the singleton aggregate that holds the
// ledger-wide counters.
package ledgerstate

import (
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/types"
)

// State is created once by Initialize and mutated only by payment
// processing. Counters never decrease; TotalCashbackMinted tracks issuance
// and is not reduced by redemptions.
type State struct {
	types.Entity
	Address             address.Address `json:"address"`
	Authority           address.Address `json:"authority"`
	TotalSubscriptions  uint64          `json:"total_subscriptions"`
	TotalPayments       uint64          `json:"total_payments"`
	TotalCashbackMinted types.Amount    `json:"total_cashback_minted"`
}

// Clone returns a copy safe to mutate.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
