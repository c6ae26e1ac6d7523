// Package event defines the notifications emitted after a loyalty operation
// commits.
package event

import (
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/id"
	"github.com/xraph/loyalty/types"
)

// Type names an event.
type Type string

const (
	TypeLedgerInitialized     Type = "ledger.initialized"
	TypePaymentProcessed      Type = "payment.processed"
	TypeSubscriptionCancelled Type = "subscription.cancelled"
	TypeSubscriptionExpired   Type = "subscription.expired"
	TypeCashbackRedeemed      Type = "cashback.redeemed"
)

// Meta is shared by every event.
type Meta struct {
	ID        id.ID `json:"id"`
	Timestamp int64 `json:"timestamp"`
}

// NewMeta stamps a fresh event ID at timestamp.
func NewMeta(timestamp int64) Meta {
	return Meta{ID: id.NewEventID(), Timestamp: timestamp}
}

// LedgerInitialized follows a successful Initialize.
type LedgerInitialized struct {
	Meta
	Authority address.Address `json:"authority"`
}

// Type implements Event.
func (LedgerInitialized) Type() Type { return TypeLedgerInitialized }

// PaymentProcessed follows a successful ProcessPayment.
type PaymentProcessed struct {
	Meta
	User           address.Address `json:"user"`
	SubscriptionID uint64          `json:"subscription_id"`
	Amount         types.Amount    `json:"amount"`
	CashbackAmount types.Amount    `json:"cashback_amount"`
	Payment        address.Address `json:"payment"`
	Subscription   address.Address `json:"subscription"`
}

// Type implements Event.
func (PaymentProcessed) Type() Type { return TypePaymentProcessed }

// SubscriptionCancelled follows a successful CancelSubscription.
type SubscriptionCancelled struct {
	Meta
	User           address.Address `json:"user"`
	SubscriptionID uint64          `json:"subscription_id"`
}

// Type implements Event.
func (SubscriptionCancelled) Type() Type { return TypeSubscriptionCancelled }

// SubscriptionExpired follows the expiry sweep persisting Active→Expired.
type SubscriptionExpired struct {
	Meta
	User           address.Address `json:"user"`
	SubscriptionID uint64          `json:"subscription_id"`
	ExpirationDate int64           `json:"expiration_date"`
}

// Type implements Event.
func (SubscriptionExpired) Type() Type { return TypeSubscriptionExpired }

// CashbackRedeemed follows a successful RedeemCashback.
type CashbackRedeemed struct {
	Meta
	User       address.Address `json:"user"`
	Amount     types.Amount    `json:"amount"`
	Redemption address.Address `json:"redemption"`
}

// Type implements Event.
func (CashbackRedeemed) Type() Type { return TypeCashbackRedeemed }

// Event is implemented by every event payload.
type Event interface {
	Type() Type
}
