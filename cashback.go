package loyalty

import (
	"context"
	"fmt"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/event"
	"github.com/xraph/loyalty/ledgerstate"
	"github.com/xraph/loyalty/payment"
	"github.com/xraph/loyalty/redemption"
	"github.com/xraph/loyalty/subscription"
	"github.com/xraph/loyalty/token"
	"github.com/xraph/loyalty/types"
)

// PaymentRequest is the input to ProcessPayment.
type PaymentRequest struct {
	// User pays NativeAmount and receives the cashback.
	User address.Address
	// Authority receives the payment and must be the ledger authority; it
	// authorizes the cashback mint.
	Authority address.Address
	// SubscriptionID is chosen by the user and must be unused for that user.
	SubscriptionID uint64
	// Amount is the subscription fee the cashback is computed from.
	Amount types.Amount
	// NativeAmount is what actually moves from User to Authority.
	NativeAmount types.Amount
}

// PaymentResult describes a committed payment.
type PaymentResult struct {
	Payment        *payment.Payment
	Subscription   *subscription.Subscription
	CashbackAmount types.Amount
	State          *ledgerstate.State
}

// RedeemRequest is the input to RedeemCashback.
type RedeemRequest struct {
	User   address.Address
	Amount types.Amount
}

// ──────────────────────────────────────────────────
// Payment Processing
// ──────────────────────────────────────────────────

// ProcessPayment records a subscription payment, moves NativeAmount from the
// user to the authority, mints 10% of Amount as cashback to the user and
// opens a 30-day subscription. Either every effect commits or none does.
func (l *Ledger) ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if err := validatePayment(req); err != nil {
		return nil, fmt.Errorf("loyalty: process payment: %w", err)
	}

	now := l.clock.Now()
	ts := now.Unix()

	var result *PaymentResult
	err := l.atomically(ctx, "process_payment", func(u *unit) error {
		prev, err := l.loadState(ctx)
		if err != nil {
			return err
		}
		if req.Authority != prev.Authority {
			return fmt.Errorf("%w: %s is not the ledger authority", ErrUnauthorized, req.Authority.Short())
		}

		cashback, err := types.Cashback(req.Amount)
		if err != nil {
			return err
		}
		next := prev.Clone()
		if next.TotalPayments, err = increment(prev.TotalPayments); err != nil {
			return err
		}
		if next.TotalSubscriptions, err = increment(prev.TotalSubscriptions); err != nil {
			return err
		}
		if next.TotalCashbackMinted, err = prev.TotalCashbackMinted.Add(cashback); err != nil {
			return err
		}
		next.Touch(now)

		// The sequence is the payment count before this payment.
		p := &payment.Payment{
			Entity:         types.NewEntity(now),
			Address:        address.Payment(req.User, prev.TotalPayments),
			User:           req.User,
			Sequence:       prev.TotalPayments,
			SubscriptionID: req.SubscriptionID,
			Amount:         req.Amount,
			NativeAmount:   req.NativeAmount,
			Status:         payment.StatusCompleted,
			Timestamp:      ts,
		}
		if err := l.store.CreatePayment(ctx, p); err != nil {
			return err
		}
		u.onRollback("delete payment", func(ctx context.Context) error {
			return l.store.DeletePayment(ctx, p.Address)
		})

		if err := l.move(u, func() (*token.Receipt, error) {
			return l.tokens.Transfer(ctx, l.paymentAsset, req.User, req.Authority, req.NativeAmount)
		}); err != nil {
			return err
		}

		if err := l.move(u, func() (*token.Receipt, error) {
			return l.tokens.Mint(ctx, l.cashbackAsset, req.User, cashback, prev.Authority)
		}); err != nil {
			return err
		}

		sub := subscription.New(req.User, req.SubscriptionID, req.Amount, ts)
		sub.Entity = types.NewEntity(now)
		if err := l.store.CreateSubscription(ctx, sub); err != nil {
			return err
		}
		u.onRollback("delete subscription", func(ctx context.Context) error {
			return l.store.DeleteSubscription(ctx, sub.Address)
		})

		if err := l.store.UpdateState(ctx, next, prev.TotalPayments); err != nil {
			return err
		}
		u.onRollback("restore ledger state", func(ctx context.Context) error {
			return l.store.UpdateState(ctx, prev, next.TotalPayments)
		})

		result = &PaymentResult{
			Payment:        p,
			Subscription:   sub,
			CashbackAmount: cashback,
			State:          next,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loyalty: process payment: %w", err)
	}

	l.logger.Debug("payment processed",
		"user", req.User.Short(),
		"subscription_id", req.SubscriptionID,
		"amount", req.Amount,
		"cashback", result.CashbackAmount,
	)
	l.plugins.EmitPaymentProcessed(ctx, &event.PaymentProcessed{
		Meta:           event.NewMeta(ts),
		User:           req.User,
		SubscriptionID: req.SubscriptionID,
		Amount:         req.Amount,
		CashbackAmount: result.CashbackAmount,
		Payment:        result.Payment.Address,
		Subscription:   result.Subscription.Address,
	})

	return result, nil
}

func validatePayment(req PaymentRequest) error {
	switch {
	case req.User.IsZero():
		return ValidationError{Field: "user", Message: "must not be the zero address"}
	case req.Authority.IsZero():
		return ValidationError{Field: "authority", Message: "must not be the zero address"}
	case req.Amount.IsZero():
		return fmt.Errorf("%w: amount", ErrInvalidAmount)
	case req.NativeAmount.IsZero():
		return fmt.Errorf("%w: native amount", ErrInvalidAmount)
	}
	return nil
}

// move runs one value transfer and registers its reversal.
func (l *Ledger) move(u *unit, fn func() (*token.Receipt, error)) error {
	r, err := fn()
	if err != nil {
		return err
	}
	u.onRollback("reverse "+string(r.Kind)+" "+r.ID.String(), func(ctx context.Context) error {
		return l.tokens.Reverse(ctx, r)
	})
	return nil
}

// ──────────────────────────────────────────────────
// Cashback Redemption
// ──────────────────────────────────────────────────

// RedeemCashback burns Amount of the user's cashback and records the
// redemption. The burn fails with ErrInsufficientBalance when the balance is
// short, in which case no redemption record survives.
func (l *Ledger) RedeemCashback(ctx context.Context, req RedeemRequest) (*redemption.Redemption, error) {
	if req.User.IsZero() {
		return nil, fmt.Errorf("loyalty: redeem cashback: %w",
			ValidationError{Field: "user", Message: "must not be the zero address"})
	}
	if req.Amount.IsZero() {
		return nil, fmt.Errorf("loyalty: redeem cashback: %w: amount", ErrInvalidAmount)
	}

	now := l.clock.Now()
	ts := now.Unix()
	r := &redemption.Redemption{
		Entity:    types.NewEntity(now),
		Address:   address.Redemption(req.User, ts),
		User:      req.User,
		Amount:    req.Amount,
		Timestamp: ts,
	}

	err := l.atomically(ctx, "redeem_cashback", func(u *unit) error {
		if err := l.store.CreateRedemption(ctx, r); err != nil {
			return err
		}
		u.onRollback("delete redemption", func(ctx context.Context) error {
			return l.store.DeleteRedemption(ctx, r.Address)
		})

		return l.move(u, func() (*token.Receipt, error) {
			return l.tokens.Burn(ctx, l.cashbackAsset, req.User, req.Amount, req.User)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loyalty: redeem cashback: %w", err)
	}

	l.logger.Debug("cashback redeemed",
		"user", req.User.Short(),
		"amount", req.Amount,
	)
	l.plugins.EmitCashbackRedeemed(ctx, &event.CashbackRedeemed{
		Meta:       event.NewMeta(ts),
		User:       req.User,
		Amount:     req.Amount,
		Redemption: r.Address,
	})

	return r, nil
}

// GetCashbackBalance returns user's cashback balance as reported by the
// value-transfer service.
func (l *Ledger) GetCashbackBalance(ctx context.Context, user address.Address) (types.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bal, err := l.tokens.Balance(ctx, l.cashbackAsset, user)
	if err != nil {
		return 0, fmt.Errorf("loyalty: cashback balance: %w", err)
	}
	return bal, nil
}
