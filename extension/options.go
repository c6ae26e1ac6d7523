package extension

import (
	"time"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/plugin"
	"github.com/xraph/loyalty/store"
	"github.com/xraph/loyalty/token"
)

// Option configures the Loyalty Forge extension.
type Option func(*Extension)

// WithStore sets the record store for the loyalty engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTokenService sets the value-transfer service for the loyalty engine.
func WithTokenService(t token.Service) Option {
	return func(e *Extension) {
		e.tokens = t
	}
}

// WithLedgerOption passes a loyalty.Option through to the underlying engine.
func WithLedgerOption(opt loyalty.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a loyalty plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, loyalty.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithAssets sets the payment and cashback token names.
func WithAssets(payment, cashback string) Option {
	return func(e *Extension) {
		e.config.PaymentAsset = payment
		e.config.CashbackAsset = cashback
	}
}

// WithMintAuthority sets the hex address registered as the cashback
// asset's mint authority.
func WithMintAuthority(hex string) Option {
	return func(e *Extension) { e.config.MintAuthority = hex }
}

// WithExpiryScan sets the expiry sweep interval and batch size.
func WithExpiryScan(interval time.Duration, batch int) Option {
	return func(e *Extension) {
		e.config.ExpiryScanInterval = interval
		e.config.ExpiryScanBatch = batch
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithTokenDBPath opens a LevelDB-backed token service at path when no
// token service is supplied.
func WithTokenDBPath(path string) Option {
	return func(e *Extension) { e.config.TokenDBPath = path }
}
