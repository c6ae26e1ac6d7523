// Package plugin provides an extensible plugin system for the loyalty ledger.
// Plugins hook into lifecycle events; the Registry is the ledger's event
// emitter.
package plugin

import (
	"context"

	"github.com/xraph/loyalty/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnLedgerInitialized is called once the ledger state record exists.
type OnLedgerInitialized interface {
	Plugin
	OnLedgerInitialized(ctx context.Context, evt *event.LedgerInitialized) error
}

// OnPaymentProcessed is called after a payment, its subscription and the
// cashback mint commit.
type OnPaymentProcessed interface {
	Plugin
	OnPaymentProcessed(ctx context.Context, evt *event.PaymentProcessed) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCancelled is called when a subscriber cancels.
type OnSubscriptionCancelled interface {
	Plugin
	OnSubscriptionCancelled(ctx context.Context, evt *event.SubscriptionCancelled) error
}

// OnSubscriptionExpired is called when the expiry sweep closes a
// subscription.
type OnSubscriptionExpired interface {
	Plugin
	OnSubscriptionExpired(ctx context.Context, evt *event.SubscriptionExpired) error
}

// ──────────────────────────────────────────────────
// Cashback hooks
// ──────────────────────────────────────────────────

// OnCashbackRedeemed is called after a cashback burn commits.
type OnCashbackRedeemed interface {
	Plugin
	OnCashbackRedeemed(ctx context.Context, evt *event.CashbackRedeemed) error
}
