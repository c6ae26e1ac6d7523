package loyalty

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/loyalty/plugin"
	"github.com/xraph/loyalty/store"
	"github.com/xraph/loyalty/token"
)

// Default asset names used when WithAssets is not given.
const (
	DefaultPaymentAsset  token.Asset = "NATIVE"
	DefaultCashbackAsset token.Asset = "CASHBACK"
)

// Ledger is the subscription and cashback engine.
type Ledger struct {
	store   store.Store
	tokens  token.Service
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock

	// mu serializes mutating operations. Reads take the shared side so
	// they never observe a half-applied unit of work.
	mu sync.RWMutex

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	paymentAsset   token.Asset
	cashbackAsset  token.Asset
	expiryInterval time.Duration
	expiryBatch    int
	skipMigrate    bool
}

// New creates a new Ledger over a record store and a value-transfer
// service.
func New(s store.Store, tokens token.Service, opts ...Option) *Ledger {
	l := &Ledger{
		store:          s,
		tokens:         tokens,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		clock:          SystemClock,
		stopChan:       make(chan struct{}),
		paymentAsset:   DefaultPaymentAsset,
		cashbackAsset:  DefaultCashbackAsset,
		expiryInterval: time.Minute,
		expiryBatch:    100,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithAssets names the payment asset moved by ProcessPayment and the
// cashback asset it mints. Empty names keep the defaults.
func WithAssets(paymentAsset, cashbackAsset token.Asset) Option {
	return func(l *Ledger) {
		if paymentAsset != "" {
			l.paymentAsset = paymentAsset
		}
		if cashbackAsset != "" {
			l.cashbackAsset = cashbackAsset
		}
	}
}

// WithExpiryScan configures the background expiry sweep. A non-positive
// interval disables the worker; ExpireSubscriptions can still be called
// directly.
func WithExpiryScan(interval time.Duration, batchSize int) Option {
	return func(l *Ledger) {
		l.expiryInterval = interval
		if batchSize > 0 {
			l.expiryBatch = batchSize
		}
	}
}

// WithoutMigrate makes Start leave the store schema alone. Plugins and
// the expiry worker still start.
func WithoutMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// Store returns the record store.
func (l *Ledger) Store() store.Store { return l.store }

// Tokens returns the value-transfer service.
func (l *Ledger) Tokens() token.Service { return l.tokens }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Assets returns the configured payment and cashback assets.
func (l *Ledger) Assets() (paymentAsset, cashbackAsset token.Asset) {
	return l.paymentAsset, l.cashbackAsset
}

// Start migrates the store unless WithoutMigrate was given, initializes
// plugins and begins background workers.
func (l *Ledger) Start(ctx context.Context) error {
	// Migrate database
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
	}

	// Initialize plugins
	l.plugins.EmitInit(ctx, l)

	if l.expiryInterval > 0 {
		l.wg.Add(1)
		go l.expiryWorker(ctx)
	}

	l.logger.Info("loyalty ledger started",
		"payment_asset", l.paymentAsset,
		"cashback_asset", l.cashbackAsset,
		"expiry_interval", l.expiryInterval,
		"expiry_batch", l.expiryBatch,
	)

	return nil
}

// Stop shuts down the Ledger. It is safe to call more than once.
func (l *Ledger) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()

		ctx := context.Background()
		l.plugins.EmitShutdown(ctx)

		err = l.store.Close()
	})
	return err
}

// expiryWorker periodically persists Active→Expired for due subscriptions.
func (l *Ledger) expiryWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.expiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			start := time.Now()
			n, err := l.ExpireSubscriptions(ctx)
			if err != nil {
				l.logger.Error("expiry sweep failed",
					"error", err,
					"expired", n,
				)
				continue
			}
			if n > 0 {
				l.logger.Debug("expiry sweep",
					"expired", n,
					"elapsed_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
