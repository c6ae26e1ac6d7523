package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/loyalty/event"
)

// DefaultTimeout bounds a single plugin hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onLedgerInitialized     []OnLedgerInitialized
	onPaymentProcessed      []OnPaymentProcessed
	onSubscriptionCancelled []OnSubscriptionCancelled
	onSubscriptionExpired   []OnSubscriptionExpired
	onCashbackRedeemed      []OnCashbackRedeemed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values keep the
// current timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnLedgerInitialized); ok {
		r.onLedgerInitialized = append(r.onLedgerInitialized, v)
	}
	if v, ok := p.(OnPaymentProcessed); ok {
		r.onPaymentProcessed = append(r.onPaymentProcessed, v)
	}
	if v, ok := p.(OnSubscriptionCancelled); ok {
		r.onSubscriptionCancelled = append(r.onSubscriptionCancelled, v)
	}
	if v, ok := p.(OnSubscriptionExpired); ok {
		r.onSubscriptionExpired = append(r.onSubscriptionExpired, v)
	}
	if v, ok := p.(OnCashbackRedeemed); ok {
		r.onCashbackRedeemed = append(r.onCashbackRedeemed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit"},
	{reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown"},
	{reflect.TypeOf((*OnLedgerInitialized)(nil)).Elem(), "OnLedgerInitialized"},
	{reflect.TypeOf((*OnPaymentProcessed)(nil)).Elem(), "OnPaymentProcessed"},
	{reflect.TypeOf((*OnSubscriptionCancelled)(nil)).Elem(), "OnSubscriptionCancelled"},
	{reflect.TypeOf((*OnSubscriptionExpired)(nil)).Elem(), "OnSubscriptionExpired"},
	{reflect.TypeOf((*OnCashbackRedeemed)(nil)).Elem(), "OnCashbackRedeemed"},
}

// implementedInterfaces returns the hook names p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func(ctx context.Context) error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func(ctx context.Context) error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitLedgerInitialized emits a ledger initialized event.
func (r *Registry) EmitLedgerInitialized(ctx context.Context, evt *event.LedgerInitialized) {
	r.mu.RLock()
	plugins := r.onLedgerInitialized
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnLedgerInitialized", func(ctx context.Context) error {
			return p.OnLedgerInitialized(ctx, evt)
		})
	}
}

// EmitPaymentProcessed emits a payment processed event.
func (r *Registry) EmitPaymentProcessed(ctx context.Context, evt *event.PaymentProcessed) {
	r.mu.RLock()
	plugins := r.onPaymentProcessed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnPaymentProcessed", func(ctx context.Context) error {
			return p.OnPaymentProcessed(ctx, evt)
		})
	}
}

// EmitSubscriptionCancelled emits a subscription cancelled event.
func (r *Registry) EmitSubscriptionCancelled(ctx context.Context, evt *event.SubscriptionCancelled) {
	r.mu.RLock()
	plugins := r.onSubscriptionCancelled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnSubscriptionCancelled", func(ctx context.Context) error {
			return p.OnSubscriptionCancelled(ctx, evt)
		})
	}
}

// EmitSubscriptionExpired emits a subscription expired event.
func (r *Registry) EmitSubscriptionExpired(ctx context.Context, evt *event.SubscriptionExpired) {
	r.mu.RLock()
	plugins := r.onSubscriptionExpired
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnSubscriptionExpired", func(ctx context.Context) error {
			return p.OnSubscriptionExpired(ctx, evt)
		})
	}
}

// EmitCashbackRedeemed emits a cashback redeemed event.
func (r *Registry) EmitCashbackRedeemed(ctx context.Context, evt *event.CashbackRedeemed) {
	r.mu.RLock()
	plugins := r.onCashbackRedeemed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnCashbackRedeemed", func(ctx context.Context) error {
			return p.OnCashbackRedeemed(ctx, evt)
		})
	}
}

// dispatch runs one hook and logs its failure. Hook errors never propagate.
func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func(context.Context) error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger. Hooks run after the ledger has
// committed, so the caller's cancellation is detached and only the
// registry timeout bounds them.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func(context.Context) error) error {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- fn(hookCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-hookCtx.Done():
		return fmt.Errorf("plugin timeout: %s", pluginName)
	}
}
