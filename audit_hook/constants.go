package audithook

// Action constants for audit events.
const (
	ActionLedgerInitialized = "ledger.initialized"

	// Payment actions
	ActionPaymentProcessed = "payment.processed"
	ActionCashbackMinted   = "cashback.minted"

	// Subscription actions
	ActionSubscriptionCancelled = "subscription.cancelled"
	ActionSubscriptionExpired   = "subscription.expired"

	// Cashback actions
	ActionCashbackRedeemed = "cashback.redeemed"
)

// Resource constants for audit events.
const (
	ResourceLedger       = "ledger"
	ResourcePayment      = "payment"
	ResourceSubscription = "subscription"
	ResourceRedemption   = "redemption"
)

// Category constants for audit events.
const (
	CategoryAdmin        = "admin"
	CategoryPayment      = "payment"
	CategorySubscription = "subscription"
	CategoryRewards      = "rewards"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
