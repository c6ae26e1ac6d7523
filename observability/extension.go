// Package observability provides a metrics plugin for the loyalty ledger
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/loyalty/event"
	"github.com/xraph/loyalty/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnLedgerInitialized     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentProcessed      = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCancelled = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionExpired   = (*MetricsExtension)(nil)
	_ plugin.OnCashbackRedeemed      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a loyalty plugin to track payment and cashback metrics.
type MetricsExtension struct {
	factory MetricFactory

	LedgerInitialized Counter

	// Payment metrics
	PaymentsProcessed Counter
	PaymentAmount     Histogram

	// Cashback metrics
	CashbackMinted   Counter
	CashbackAmount   Histogram
	CashbackRedeemed Counter
	RedemptionAmount Histogram

	// Subscription metrics
	SubscriptionCancelled Counter
	SubscriptionExpired   Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		LedgerInitialized: factory.Counter("loyalty.ledger.initialized"),

		PaymentsProcessed: factory.Counter("loyalty.payment.processed"),
		PaymentAmount:     factory.Histogram("loyalty.payment.amount"),

		CashbackMinted:   factory.Counter("loyalty.cashback.minted"),
		CashbackAmount:   factory.Histogram("loyalty.cashback.amount"),
		CashbackRedeemed: factory.Counter("loyalty.cashback.redeemed"),
		RedemptionAmount: factory.Histogram("loyalty.cashback.redemption.amount"),

		SubscriptionCancelled: factory.Counter("loyalty.subscription.cancelled"),
		SubscriptionExpired:   factory.Counter("loyalty.subscription.expired"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnLedgerInitialized implements plugin.OnLedgerInitialized.
func (m *MetricsExtension) OnLedgerInitialized(_ context.Context, _ *event.LedgerInitialized) error {
	m.LedgerInitialized.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (m *MetricsExtension) OnPaymentProcessed(_ context.Context, evt *event.PaymentProcessed) error {
	m.PaymentsProcessed.Inc()
	m.PaymentAmount.Observe(float64(evt.Amount))
	m.CashbackMinted.Add(float64(evt.CashbackAmount))
	m.CashbackAmount.Observe(float64(evt.CashbackAmount))
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCancelled implements plugin.OnSubscriptionCancelled.
func (m *MetricsExtension) OnSubscriptionCancelled(_ context.Context, _ *event.SubscriptionCancelled) error {
	m.SubscriptionCancelled.Inc()
	return nil
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (m *MetricsExtension) OnSubscriptionExpired(_ context.Context, _ *event.SubscriptionExpired) error {
	m.SubscriptionExpired.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Cashback hooks
// ──────────────────────────────────────────────────

// OnCashbackRedeemed implements plugin.OnCashbackRedeemed.
func (m *MetricsExtension) OnCashbackRedeemed(_ context.Context, evt *event.CashbackRedeemed) error {
	m.CashbackRedeemed.Inc()
	m.RedemptionAmount.Observe(float64(evt.Amount))
	return nil
}
