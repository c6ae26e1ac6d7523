// Package extension provides the Forge extension adapter for Loyalty.
//
// It implements the forge.Extension interface to integrate the loyalty
// ledger into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.loyalty" or "loyalty" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/store"
	"github.com/xraph/loyalty/store/memory"
	"github.com/xraph/loyalty/token"
	tokendb "github.com/xraph/loyalty/token/leveldb"
	tokenmem "github.com/xraph/loyalty/token/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "loyalty"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription payments with cashback rewards"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the loyalty ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *loyalty.Ledger
	store      store.Store
	tokens     token.Service
	closer     func() error
	ledgerOpts []loyalty.Option
}

// New creates a new Loyalty Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *loyalty.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the loyalty engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}
	if e.tokens == nil {
		svc, err := e.openTokens()
		if err != nil {
			return err
		}
		e.tokens = svc
	}

	eng := loyalty.New(e.store, e.tokens, e.buildLedgerOpts()...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*loyalty.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("loyalty: extension not initialized")
	}

	if err := e.registerAssets(ctx); err != nil {
		return err
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	var errs []error
	if e.engine != nil {
		errs = append(errs, e.engine.Stop())
	}
	if e.closer != nil {
		errs = append(errs, e.closer())
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("loyalty: store not initialized")
	}
	return e.store.Ping(ctx)
}

// openTokens builds the default token service: LevelDB when a path is
// configured, in-memory otherwise.
func (e *Extension) openTokens() (token.Service, error) {
	if e.config.TokenDBPath == "" {
		return tokenmem.New(), nil
	}
	svc, err := tokendb.New(e.config.TokenDBPath)
	if err != nil {
		return nil, fmt.Errorf("loyalty: open token db: %w", err)
	}
	e.closer = svc.Close
	return svc, nil
}

// registerAssets declares the configured assets with the token service.
// Assets that already exist are left untouched.
func (e *Extension) registerAssets(ctx context.Context) error {
	assets := []struct {
		asset     string
		authority string
	}{
		{e.config.PaymentAsset, e.config.PaymentIssuer},
		{e.config.CashbackAsset, e.config.MintAuthority},
	}
	for _, a := range assets {
		if a.authority == "" {
			continue
		}
		authority, err := address.Parse(a.authority)
		if err != nil {
			return fmt.Errorf("loyalty: asset %s authority: %w", a.asset, err)
		}
		err = e.tokens.RegisterAsset(ctx, token.Asset(a.asset), authority)
		if err != nil && !errors.Is(err, loyalty.ErrAssetExists) {
			return fmt.Errorf("loyalty: register asset %s: %w", a.asset, err)
		}
	}
	return nil
}

// buildLedgerOpts constructs loyalty.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []loyalty.Option {
	opts := make([]loyalty.Option, 0, len(e.ledgerOpts)+5)

	// Apply config-derived options.
	opts = append(opts,
		loyalty.WithAssets(token.Asset(e.config.PaymentAsset), token.Asset(e.config.CashbackAsset)),
		loyalty.WithPluginTimeout(e.config.PluginTimeout),
	)

	interval := e.config.ExpiryScanInterval
	if interval < 0 {
		interval = 0
	}
	opts = append(opts, loyalty.WithExpiryScan(interval, e.config.ExpiryScanBatch))
	if e.config.DisableMigrate {
		opts = append(opts, loyalty.WithoutMigrate())
	}

	// Append any pass-through loyalty options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("loyalty: configuration is required but not found in config files; " +
				"ensure 'extensions.loyalty' or 'loyalty' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("loyalty: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("payment_asset", e.config.PaymentAsset),
		forge.F("cashback_asset", e.config.CashbackAsset),
		forge.F("expiry_scan_interval", e.config.ExpiryScanInterval),
		forge.F("expiry_scan_batch", e.config.ExpiryScanBatch),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("token_db_path", e.config.TokenDBPath),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.loyalty", "loyalty"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("loyalty: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("loyalty: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.PaymentAsset == "" {
		cfg.PaymentAsset = defaults.PaymentAsset
	}
	if cfg.CashbackAsset == "" {
		cfg.CashbackAsset = defaults.CashbackAsset
	}
	if cfg.ExpiryScanInterval == 0 {
		cfg.ExpiryScanInterval = defaults.ExpiryScanInterval
	}
	if cfg.ExpiryScanBatch == 0 {
		cfg.ExpiryScanBatch = defaults.ExpiryScanBatch
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.PaymentAsset, programmaticConfig.PaymentAsset)
	fill(&yamlConfig.CashbackAsset, programmaticConfig.CashbackAsset)
	fill(&yamlConfig.PaymentIssuer, programmaticConfig.PaymentIssuer)
	fill(&yamlConfig.MintAuthority, programmaticConfig.MintAuthority)
	fill(&yamlConfig.TokenDBPath, programmaticConfig.TokenDBPath)

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.ExpiryScanInterval == 0 && programmaticConfig.ExpiryScanInterval != 0 {
		yamlConfig.ExpiryScanInterval = programmaticConfig.ExpiryScanInterval
	}
	if yamlConfig.ExpiryScanBatch == 0 && programmaticConfig.ExpiryScanBatch != 0 {
		yamlConfig.ExpiryScanBatch = programmaticConfig.ExpiryScanBatch
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
