package loyalty

import (
	"context"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/ledgerstate"
	"github.com/xraph/loyalty/payment"
	"github.com/xraph/loyalty/redemption"
	"github.com/xraph/loyalty/subscription"
)

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetState returns the ledger state, or ErrNotInitialized.
func (l *Ledger) GetState(ctx context.Context) (*ledgerstate.State, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadState(ctx)
}

// GetPayment returns the payment user made as the ledger's seq-th payment.
func (l *Ledger) GetPayment(ctx context.Context, user address.Address, seq uint64) (*payment.Payment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetPayment(ctx, address.Payment(user, seq))
}

// GetSubscription returns user's subscription subscriptionID.
func (l *Ledger) GetSubscription(ctx context.Context, user address.Address, subscriptionID uint64) (*subscription.Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetSubscription(ctx, address.Subscription(user, subscriptionID))
}

// GetRedemption returns the redemption user made at timestamp.
func (l *Ledger) GetRedemption(ctx context.Context, user address.Address, timestamp int64) (*redemption.Redemption, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetRedemption(ctx, address.Redemption(user, timestamp))
}

// ListPayments returns user's payments in sequence order.
func (l *Ledger) ListPayments(ctx context.Context, user address.Address, opts payment.ListOpts) ([]*payment.Payment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.ListPayments(ctx, user, opts)
}

// ListSubscriptions returns user's subscriptions, optionally filtered by
// stored status.
func (l *Ledger) ListSubscriptions(ctx context.Context, user address.Address, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.ListSubscriptions(ctx, user, opts)
}

// ListRedemptions returns user's redemptions, oldest first.
func (l *Ledger) ListRedemptions(ctx context.Context, user address.Address, opts redemption.ListOpts) ([]*redemption.Redemption, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.ListRedemptions(ctx, user, opts)
}
