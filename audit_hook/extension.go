// Package audithook bridges loyalty ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/event"
	"github.com/xraph/loyalty/id"
	"github.com/xraph/loyalty/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnLedgerInitialized     = (*Extension)(nil)
	_ plugin.OnPaymentProcessed      = (*Extension)(nil)
	_ plugin.OnSubscriptionCancelled = (*Extension)(nil)
	_ plugin.OnSubscriptionExpired   = (*Extension)(nil)
	_ plugin.OnCashbackRedeemed      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	ID         string         `json:"id"`
	EventID    string         `json:"event_id"`
	Timestamp  int64          `json:"timestamp"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges loyalty events to an audit trail backend.
type Extension struct {
	recorder         Recorder
	categories       map[string]bool // nil = all categories
	disabled         map[string]bool
	skipZeroCashback bool
	logger           *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnLedgerInitialized implements plugin.OnLedgerInitialized.
func (e *Extension) OnLedgerInitialized(ctx context.Context, evt *event.LedgerInitialized) error {
	return e.record(ctx, evt.Meta, entry{
		action:   ActionLedgerInitialized,
		resource: ResourceLedger,
		category: CategoryAdmin,
		actor:    evt.Authority.String(),
	})
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentProcessed implements plugin.OnPaymentProcessed. A payment
// produces two audit entries: the fee and the cashback it earned.
func (e *Extension) OnPaymentProcessed(ctx context.Context, evt *event.PaymentProcessed) error {
	if err := e.record(ctx, evt.Meta, entry{
		action:     ActionPaymentProcessed,
		resource:   ResourcePayment,
		resourceID: evt.Payment.String(),
		category:   CategoryPayment,
		actor:      evt.User.String(),
		kv: []any{
			"subscription_id", evt.SubscriptionID,
			"subscription", evt.Subscription.String(),
			"amount", uint64(evt.Amount),
		},
	}); err != nil {
		return err
	}
	if e.skipZeroCashback && evt.CashbackAmount.IsZero() {
		return nil
	}
	return e.record(ctx, evt.Meta, entry{
		action:     ActionCashbackMinted,
		resource:   ResourcePayment,
		resourceID: evt.Payment.String(),
		category:   CategoryRewards,
		actor:      evt.User.String(),
		kv:         []any{"cashback_amount", uint64(evt.CashbackAmount)},
	})
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCancelled implements plugin.OnSubscriptionCancelled.
func (e *Extension) OnSubscriptionCancelled(ctx context.Context, evt *event.SubscriptionCancelled) error {
	return e.record(ctx, evt.Meta, entry{
		action:     ActionSubscriptionCancelled,
		resource:   ResourceSubscription,
		resourceID: address.Subscription(evt.User, evt.SubscriptionID).String(),
		category:   CategorySubscription,
		actor:      evt.User.String(),
		kv:         []any{"subscription_id", evt.SubscriptionID},
	})
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (e *Extension) OnSubscriptionExpired(ctx context.Context, evt *event.SubscriptionExpired) error {
	return e.record(ctx, evt.Meta, entry{
		action:     ActionSubscriptionExpired,
		resource:   ResourceSubscription,
		resourceID: address.Subscription(evt.User, evt.SubscriptionID).String(),
		category:   CategorySubscription,
		actor:      evt.User.String(),
		kv: []any{
			"subscription_id", evt.SubscriptionID,
			"expiration_date", evt.ExpirationDate,
		},
	})
}

// ──────────────────────────────────────────────────
// Cashback hooks
// ──────────────────────────────────────────────────

// OnCashbackRedeemed implements plugin.OnCashbackRedeemed.
func (e *Extension) OnCashbackRedeemed(ctx context.Context, evt *event.CashbackRedeemed) error {
	return e.record(ctx, evt.Meta, entry{
		action:     ActionCashbackRedeemed,
		resource:   ResourceRedemption,
		resourceID: evt.Redemption.String(),
		category:   CategoryRewards,
		actor:      evt.User.String(),
		kv:         []any{"amount", uint64(evt.Amount)},
	})
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

type entry struct {
	action     string
	resource   string
	resourceID string
	category   string
	actor      string
	kv         []any
}

// record builds and sends an audit event unless its action or category is
// filtered out. Recorder failures are logged, never returned.
func (e *Extension) record(ctx context.Context, meta event.Meta, en entry) error {
	if e.disabled[en.action] {
		return nil
	}
	if e.categories != nil && !e.categories[en.category] {
		return nil
	}

	md := make(map[string]any, len(en.kv)/2)
	for i := 0; i+1 < len(en.kv); i += 2 {
		key, ok := en.kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", en.kv[i])
		}
		md[key] = en.kv[i+1]
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID().String(),
		EventID:    meta.ID.String(),
		Timestamp:  meta.Timestamp,
		Action:     en.action,
		Resource:   en.resource,
		Category:   en.category,
		ResourceID: en.resourceID,
		Actor:      en.actor,
		Metadata:   md,
		Outcome:    OutcomeSuccess,
		Severity:   SeverityInfo,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", en.action,
			"resource_id", en.resourceID,
			"error", recErr,
		)
	}
	return nil
}
