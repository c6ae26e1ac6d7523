package extension

import "time"

// Config holds the Loyalty extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.loyalty" or "loyalty" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start. Plugins and the
	// expiry sweep still run.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// PaymentAsset is the token the subscription fee is paid in
	// (default: "NATIVE").
	PaymentAsset string `json:"payment_asset" mapstructure:"payment_asset" yaml:"payment_asset"`

	// CashbackAsset is the token minted as cashback (default: "CASHBACK").
	CashbackAsset string `json:"cashback_asset" mapstructure:"cashback_asset" yaml:"cashback_asset"`

	// PaymentIssuer is the hex address allowed to mint the payment asset.
	// When set, the asset is registered with the token service on start.
	PaymentIssuer string `json:"payment_issuer" mapstructure:"payment_issuer" yaml:"payment_issuer"`

	// MintAuthority is the hex address allowed to mint cashback. It should
	// match the authority the ledger is initialized with. When set, the
	// cashback asset is registered with the token service on start.
	MintAuthority string `json:"mint_authority" mapstructure:"mint_authority" yaml:"mint_authority"`

	// ExpiryScanInterval is how often due subscriptions are swept to
	// Expired (default: 1m). A negative value disables the sweep.
	ExpiryScanInterval time.Duration `json:"expiry_scan_interval" mapstructure:"expiry_scan_interval" yaml:"expiry_scan_interval"`

	// ExpiryScanBatch caps the subscriptions expired per sweep (default: 100).
	ExpiryScanBatch int `json:"expiry_scan_batch" mapstructure:"expiry_scan_batch" yaml:"expiry_scan_batch"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// TokenDBPath, when set and no token service was supplied, opens a
	// LevelDB-backed token service at this path instead of the in-memory one.
	TokenDBPath string `json:"token_db_path" mapstructure:"token_db_path" yaml:"token_db_path"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PaymentAsset:       "NATIVE",
		CashbackAsset:      "CASHBACK",
		ExpiryScanInterval: time.Minute,
		ExpiryScanBatch:    100,
		PluginTimeout:      5 * time.Second,
	}
}
