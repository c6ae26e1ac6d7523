package loyalty_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/store/memory"
	tokens "github.com/xraph/loyalty/token/memory"
)

// TestDocumentationExamples runs the package documentation walkthrough.
func TestDocumentationExamples(t *testing.T) {
	ctx := context.Background()
	issuer := address.Account("docs-issuer")
	authority := address.Account("docs-authority")
	user := address.Account("docs-user")

	svc := tokens.New()
	if err := svc.RegisterAsset(ctx, loyalty.DefaultPaymentAsset, issuer); err != nil {
		t.Fatal(err)
	}
	if err := svc.RegisterAsset(ctx, loyalty.DefaultCashbackAsset, authority); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Mint(ctx, loyalty.DefaultPaymentAsset, user, 500, issuer); err != nil {
		t.Fatal(err)
	}

	l := loyalty.New(memory.New(), svc,
		loyalty.WithLogger(slog.Default()),
		loyalty.WithExpiryScan(0, 0),
	)
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	if _, err := l.Initialize(ctx, authority); err != nil {
		t.Fatal(err)
	}

	t.Run("ProcessPayment", func(t *testing.T) {
		res, err := l.ProcessPayment(ctx, loyalty.PaymentRequest{
			User:           user,
			Authority:      authority,
			SubscriptionID: 1,
			Amount:         1000,
			NativeAmount:   50,
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.CashbackAmount != 100 {
			t.Errorf("cashback = %d, want 100", res.CashbackAmount)
		}
	})

	t.Run("RedeemCashback", func(t *testing.T) {
		if _, err := l.RedeemCashback(ctx, loyalty.RedeemRequest{User: user, Amount: 40}); err != nil {
			t.Fatal(err)
		}
		bal, err := l.GetCashbackBalance(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		if bal != 60 {
			t.Errorf("balance = %d, want 60", bal)
		}
	})

	t.Run("CancelSubscription", func(t *testing.T) {
		if _, err := l.CancelSubscription(ctx, user, address.Subscription(user, 1)); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("ErrorMatching", func(t *testing.T) {
		_, err := l.ProcessPayment(ctx, loyalty.PaymentRequest{
			User:           user,
			Authority:      authority,
			SubscriptionID: 2,
			Amount:         1000,
			NativeAmount:   10_000,
		})
		if !errors.Is(err, loyalty.ErrInsufficientFunds) || !loyalty.IsFundsError(err) {
			t.Errorf("expected funds error, got %v", err)
		}
	})
}
