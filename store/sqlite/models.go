package sqlite

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/ledgerstate"
	"github.com/xraph/loyalty/payment"
	"github.com/xraph/loyalty/redemption"
	"github.com/xraph/loyalty/subscription"
	"github.com/xraph/loyalty/types"
)

// SQLite integers are signed 64-bit, so unsigned values are stored as
// zero-padded 20-digit TEXT. Padding keeps ORDER BY and range filters
// consistent with numeric order.

// ==================== Ledger state models ====================

type stateModel struct {
	grove.BaseModel `grove:"table:loyalty_ledger_state"`

	Address             string    `grove:"address,pk"`
	Authority           string    `grove:"authority"`
	TotalSubscriptions  string    `grove:"total_subscriptions"`
	TotalPayments       string    `grove:"total_payments"`
	TotalCashbackMinted string    `grove:"total_cashback_minted"`
	CreatedAt           time.Time `grove:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"`
}

func toStateModel(s *ledgerstate.State) *stateModel {
	return &stateModel{
		Address:             s.Address.String(),
		Authority:           s.Authority.String(),
		TotalSubscriptions:  formatUint(s.TotalSubscriptions),
		TotalPayments:       formatUint(s.TotalPayments),
		TotalCashbackMinted: formatUint(uint64(s.TotalCashbackMinted)),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func fromStateModel(m *stateModel) (*ledgerstate.State, error) {
	var (
		s   = &ledgerstate.State{Entity: types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}}
		err error
	)
	if s.Address, err = address.Parse(m.Address); err != nil {
		return nil, err
	}
	if s.Authority, err = address.Parse(m.Authority); err != nil {
		return nil, err
	}
	if s.TotalSubscriptions, err = parseUint("total_subscriptions", m.TotalSubscriptions); err != nil {
		return nil, err
	}
	if s.TotalPayments, err = parseUint("total_payments", m.TotalPayments); err != nil {
		return nil, err
	}
	minted, err := parseUint("total_cashback_minted", m.TotalCashbackMinted)
	if err != nil {
		return nil, err
	}
	s.TotalCashbackMinted = types.Amount(minted)
	return s, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:loyalty_payments"`

	Address        string    `grove:"address,pk"`
	UserAddress    string    `grove:"user_address"`
	Sequence       string    `grove:"sequence"`
	SubscriptionID string    `grove:"subscription_id"`
	Amount         string    `grove:"amount"`
	NativeAmount   string    `grove:"native_amount"`
	Status         string    `grove:"status"`
	Timestamp      int64     `grove:"timestamp"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		Address:        p.Address.String(),
		UserAddress:    p.User.String(),
		Sequence:       formatUint(p.Sequence),
		SubscriptionID: formatUint(p.SubscriptionID),
		Amount:         formatUint(uint64(p.Amount)),
		NativeAmount:   formatUint(uint64(p.NativeAmount)),
		Status:         string(p.Status),
		Timestamp:      p.Timestamp,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	var (
		p = &payment.Payment{
			Entity:    types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			Status:    payment.Status(m.Status),
			Timestamp: m.Timestamp,
		}
		err error
	)
	if err = p.Status.Validate(); err != nil {
		return nil, err
	}
	if p.Address, err = address.Parse(m.Address); err != nil {
		return nil, err
	}
	if p.User, err = address.Parse(m.UserAddress); err != nil {
		return nil, err
	}
	if p.Sequence, err = parseUint("sequence", m.Sequence); err != nil {
		return nil, err
	}
	if p.SubscriptionID, err = parseUint("subscription_id", m.SubscriptionID); err != nil {
		return nil, err
	}
	amount, err := parseUint("amount", m.Amount)
	if err != nil {
		return nil, err
	}
	native, err := parseUint("native_amount", m.NativeAmount)
	if err != nil {
		return nil, err
	}
	p.Amount, p.NativeAmount = types.Amount(amount), types.Amount(native)
	return p, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:loyalty_subscriptions"`

	Address          string    `grove:"address,pk"`
	UserAddress      string    `grove:"user_address"`
	SubscriptionID   string    `grove:"subscription_id"`
	Amount           string    `grove:"amount"`
	Status           string    `grove:"status"`
	ActivationDate   int64     `grove:"activation_date"`
	ExpirationDate   int64     `grove:"expiration_date"`
	CancellationDate *int64    `grove:"cancellation_date"`
	CreatedAt        time.Time `grove:"created_at"`
	UpdatedAt        time.Time `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		Address:          s.Address.String(),
		UserAddress:      s.User.String(),
		SubscriptionID:   formatUint(s.SubscriptionID),
		Amount:           formatUint(uint64(s.Amount)),
		Status:           string(s.Status),
		ActivationDate:   s.ActivationDate,
		ExpirationDate:   s.ExpirationDate,
		CancellationDate: s.CancellationDate,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	var (
		s = &subscription.Subscription{
			Entity:           types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			Status:           subscription.Status(m.Status),
			ActivationDate:   m.ActivationDate,
			ExpirationDate:   m.ExpirationDate,
			CancellationDate: m.CancellationDate,
		}
		err error
	)
	if err = s.Status.Validate(); err != nil {
		return nil, err
	}
	if s.Address, err = address.Parse(m.Address); err != nil {
		return nil, err
	}
	if s.User, err = address.Parse(m.UserAddress); err != nil {
		return nil, err
	}
	if s.SubscriptionID, err = parseUint("subscription_id", m.SubscriptionID); err != nil {
		return nil, err
	}
	amount, err := parseUint("amount", m.Amount)
	if err != nil {
		return nil, err
	}
	s.Amount = types.Amount(amount)
	return s, nil
}

// ==================== Redemption models ====================

type redemptionModel struct {
	grove.BaseModel `grove:"table:loyalty_redemptions"`

	Address     string    `grove:"address,pk"`
	UserAddress string    `grove:"user_address"`
	Amount      string    `grove:"amount"`
	Timestamp   int64     `grove:"timestamp"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toRedemptionModel(r *redemption.Redemption) *redemptionModel {
	return &redemptionModel{
		Address:     r.Address.String(),
		UserAddress: r.User.String(),
		Amount:      formatUint(uint64(r.Amount)),
		Timestamp:   r.Timestamp,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fromRedemptionModel(m *redemptionModel) (*redemption.Redemption, error) {
	var (
		r = &redemption.Redemption{
			Entity:    types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			Timestamp: m.Timestamp,
		}
		err error
	)
	if r.Address, err = address.Parse(m.Address); err != nil {
		return nil, err
	}
	if r.User, err = address.Parse(m.UserAddress); err != nil {
		return nil, err
	}
	amount, err := parseUint("amount", m.Amount)
	if err != nil {
		return nil, err
	}
	r.Amount = types.Amount(amount)
	return r, nil
}

// ==================== Helpers ====================

func formatUint(v uint64) string {
	return fmt.Sprintf("%020d", v)
}

func parseUint(column, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("loyalty/sqlite: column %s: %w", column, err)
	}
	return v, nil
}
