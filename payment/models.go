// Package payment defines the immutable record of a processed subscription
// payment.
package payment

import (
	"fmt"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/types"
)

// Status is the closed set of payment states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Validate rejects values outside the closed set.
func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return nil
	default:
		return fmt.Errorf("payment: unknown status %q", string(s))
	}
}

// Final reports whether no further transition is possible.
func (s Status) Final() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusPending:
		return false
	default:
		return false
	}
}

// Payment is keyed by (User, Sequence), where Sequence is the ledger's
// total payment count at creation time.
type Payment struct {
	types.Entity
	Address        address.Address `json:"address"`
	User           address.Address `json:"user"`
	Sequence       uint64          `json:"sequence"`
	SubscriptionID uint64          `json:"subscription_id"`
	Amount         types.Amount    `json:"amount"`
	NativeAmount   types.Amount    `json:"native_amount"`
	Status         Status          `json:"status"`
	Timestamp      int64           `json:"timestamp"`
}

// ListOpts filters payment listings.
type ListOpts struct {
	Limit  int
	Offset int
}
