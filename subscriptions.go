package loyalty

import (
	"context"
	"fmt"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/event"
	"github.com/xraph/loyalty/subscription"
)

// ──────────────────────────────────────────────────
// Subscription Lifecycle
// ──────────────────────────────────────────────────

// CancelSubscription moves the subscription at addr from Active to
// Cancelled. Only its owner may cancel (ErrUnauthorized), and only while it
// is still active (ErrSubscriptionNotActive). A subscription past its
// expiration date counts as expired even before the sweep persists it.
func (l *Ledger) CancelSubscription(ctx context.Context, caller, addr address.Address) (*subscription.Subscription, error) {
	now := l.clock.Now()
	ts := now.Unix()

	var cancelled *subscription.Subscription
	err := l.atomically(ctx, "cancel_subscription", func(_ *unit) error {
		sub, err := l.store.GetSubscription(ctx, addr)
		if err != nil {
			return err
		}
		if caller != sub.User {
			return fmt.Errorf("%w: %s does not own subscription %d", ErrUnauthorized, caller.Short(), sub.SubscriptionID)
		}
		if status := sub.EffectiveStatus(ts); !status.CanTransition(subscription.StatusCancelled) {
			return fmt.Errorf("%w: subscription %d is %s", ErrSubscriptionNotActive, sub.SubscriptionID, status)
		}

		sub.Status = subscription.StatusCancelled
		sub.CancellationDate = &ts
		sub.Touch(now)
		if err := l.store.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		cancelled = sub
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loyalty: cancel subscription: %w", err)
	}

	l.logger.Debug("subscription cancelled",
		"user", cancelled.User.Short(),
		"subscription_id", cancelled.SubscriptionID,
	)
	l.plugins.EmitSubscriptionCancelled(ctx, &event.SubscriptionCancelled{
		Meta:           event.NewMeta(ts),
		User:           cancelled.User,
		SubscriptionID: cancelled.SubscriptionID,
	})

	return cancelled, nil
}

// ExpireSubscriptions persists Active→Expired for up to one batch of
// subscriptions whose expiration date has passed, and returns how many it
// closed. Each subscription commits on its own; a failure stops the sweep
// but keeps the ones already expired.
func (l *Ledger) ExpireSubscriptions(ctx context.Context) (int, error) {
	now := l.clock.Now()
	ts := now.Unix()

	l.mu.RLock()
	due, err := l.store.ListDueSubscriptions(ctx, ts, l.expiryBatch)
	l.mu.RUnlock()
	if err != nil {
		return 0, fmt.Errorf("loyalty: expire subscriptions: %w", err)
	}

	expired := 0
	for _, candidate := range due {
		var sub *subscription.Subscription
		err := l.atomically(ctx, "expire_subscription", func(_ *unit) error {
			// Re-read under the lock; a cancel may have won the race.
			current, err := l.store.GetSubscription(ctx, candidate.Address)
			if err != nil {
				return err
			}
			if current.Status != subscription.StatusActive || current.EffectiveStatus(ts) != subscription.StatusExpired {
				return nil
			}
			current.Status = subscription.StatusExpired
			current.Touch(now)
			if err := l.store.UpdateSubscription(ctx, current); err != nil {
				return err
			}
			sub = current
			return nil
		})
		if err != nil {
			return expired, fmt.Errorf("loyalty: expire subscriptions: %w", err)
		}
		if sub == nil {
			continue
		}

		expired++
		l.plugins.EmitSubscriptionExpired(ctx, &event.SubscriptionExpired{
			Meta:           event.NewMeta(ts),
			User:           sub.User,
			SubscriptionID: sub.SubscriptionID,
			ExpirationDate: sub.ExpirationDate,
		})
	}

	return expired, nil
}
