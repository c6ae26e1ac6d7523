// Package loyalty provides a subscription-and-cashback ledger for Go
// applications.
//
// Users pay for a recurring subscription; the ledger records the payment,
// opens a 30-day subscription, mints 10% of the fee as a cashback credit and
// later lets the user redeem (burn) that credit. Value movement is delegated
// to a token.Service; records live in a store.Store keyed by addresses
// derived from each record's logical key (see package address).
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/loyalty"
//	    "github.com/xraph/loyalty/store/memory"
//	    tokens "github.com/xraph/loyalty/token/memory"
//	)
//
//	svc := tokens.New()
//	_ = svc.RegisterAsset(ctx, loyalty.DefaultPaymentAsset, issuer)
//	_ = svc.RegisterAsset(ctx, loyalty.DefaultCashbackAsset, authority)
//
//	l := loyalty.New(memory.New(), svc)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	if _, err := l.Initialize(ctx, authority); err != nil {
//	    log.Fatal(err)
//	}
//
// # Operations
//
// ProcessPayment moves the native amount from the user to the authority,
// mints the cashback and creates the payment and subscription records:
//
//	res, err := l.ProcessPayment(ctx, loyalty.PaymentRequest{
//	    User:           user,
//	    Authority:      authority,
//	    SubscriptionID: 1,
//	    Amount:         1000,
//	    NativeAmount:   50,
//	})
//	// res.CashbackAmount == 100
//
// CancelSubscription is restricted to the subscription's owner:
//
//	_, err = l.CancelSubscription(ctx, user, res.Subscription.Address)
//
// RedeemCashback burns credit from the caller's cashback balance:
//
//	_, err = l.RedeemCashback(ctx, loyalty.RedeemRequest{User: user, Amount: 40})
//
// # Atomicity
//
// Every mutating operation is all-or-nothing. Steps register compensations
// as they succeed (record creates are deleted, transfers reversed, the
// ledger state restored) and a failure unwinds them in reverse order before
// the error is returned. Events reach plugins only after a commit.
//
// # Errors
//
// Errors wrap the sentinels in this package; match them with errors.Is:
//
//	if errors.Is(err, loyalty.ErrInsufficientFunds) { ... }
package loyalty
