package subscription

import (
	"context"

	"github.com/xraph/loyalty/address"
)

// Store persists subscription records.
type Store interface {
	CreateSubscription(ctx context.Context, s *Subscription) error
	GetSubscription(ctx context.Context, addr address.Address) (*Subscription, error)
	ListSubscriptions(ctx context.Context, user address.Address, opts ListOpts) ([]*Subscription, error)
	// ListDueSubscriptions returns Active subscriptions whose expiration
	// date is at or before asOf, oldest first.
	ListDueSubscriptions(ctx context.Context, asOf int64, limit int) ([]*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error
	// DeleteSubscription only compensates a create inside an aborted
	// operation.
	DeleteSubscription(ctx context.Context, addr address.Address) error
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
