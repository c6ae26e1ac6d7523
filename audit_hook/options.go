package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithCategories restricts the trail to the given categories
// (CategoryAdmin, CategoryPayment, CategorySubscription, CategoryRewards).
// If not called, every category is audited.
func WithCategories(categories ...string) Option {
	return func(e *Extension) {
		e.categories = make(map[string]bool, len(categories))
		for _, c := range categories {
			e.categories[c] = true
		}
	}
}

// WithDisabledActions skips the given actions.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.disabled == nil {
			e.disabled = make(map[string]bool, len(actions))
		}
		for _, action := range actions {
			e.disabled[action] = true
		}
	}
}

// WithoutZeroCashback drops the cashback.minted entry for payments too
// small to earn any cashback. The payment entry is still recorded.
func WithoutZeroCashback() Option {
	return func(e *Extension) {
		e.skipZeroCashback = true
	}
}
