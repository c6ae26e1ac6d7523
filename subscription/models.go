// Package subscription defines subscription records and their status
// machine.
package subscription

import (
	"fmt"
	"time"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/types"
)

// Period is the fixed length of a subscription term.
const Period = 30 * 24 * time.Hour

// PeriodSeconds is Period expressed in seconds (2,592,000).
const PeriodSeconds = int64(Period / time.Second)

// Status is the closed set of subscription states.
//
// Allowed transitions: Active→Cancelled and Active→Expired. Nothing leaves
// Cancelled or Expired.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Validate rejects values outside the closed set.
func (s Status) Validate() error {
	switch s {
	case StatusActive, StatusExpired, StatusCancelled:
		return nil
	default:
		return fmt.Errorf("subscription: unknown status %q", string(s))
	}
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusCancelled || next == StatusExpired
	case StatusExpired, StatusCancelled:
		return false
	default:
		return false
	}
}

// Subscription is keyed by (User, SubscriptionID); the ID is chosen by the
// subscriber and must be unique per user.
type Subscription struct {
	types.Entity
	Address          address.Address `json:"address"`
	User             address.Address `json:"user"`
	SubscriptionID   uint64          `json:"subscription_id"`
	Amount           types.Amount    `json:"amount"`
	Status           Status          `json:"status"`
	ActivationDate   int64           `json:"activation_date"`
	ExpirationDate   int64           `json:"expiration_date"`
	CancellationDate *int64          `json:"cancellation_date,omitempty"`
}

// New builds an Active subscription activated at now (unix seconds).
func New(user address.Address, subscriptionID uint64, amount types.Amount, now int64) *Subscription {
	return &Subscription{
		Address:        address.Subscription(user, subscriptionID),
		User:           user,
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Status:         StatusActive,
		ActivationDate: now,
		ExpirationDate: now + PeriodSeconds,
	}
}

// EffectiveStatus is the status as of now. A stored Active subscription
// whose expiration date has passed reads as Expired even before the expiry
// sweep persists it.
func (s *Subscription) EffectiveStatus(now int64) Status {
	if s.Status == StatusActive && now >= s.ExpirationDate {
		return StatusExpired
	}
	return s.Status
}

// IsActive reports whether the subscription grants access at now.
func (s *Subscription) IsActive(now int64) bool {
	return s.EffectiveStatus(now) == StatusActive
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	if s.CancellationDate != nil {
		v := *s.CancellationDate
		c.CancellationDate = &v
	}
	return &c
}
