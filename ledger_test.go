package loyalty_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/event"
	"github.com/xraph/loyalty/payment"
	"github.com/xraph/loyalty/redemption"
	"github.com/xraph/loyalty/store/memory"
	"github.com/xraph/loyalty/subscription"
	"github.com/xraph/loyalty/token"
	tokens "github.com/xraph/loyalty/token/memory"
	"github.com/xraph/loyalty/types"
)

var (
	issuer    = address.Account("issuer")
	authority = address.Account("authority")
	alice     = address.Account("alice")
	bob       = address.Account("bob")
)

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// events records every hook the ledger fires.
type events struct {
	mu        sync.Mutex
	init      []*event.LedgerInitialized
	payments  []*event.PaymentProcessed
	cancels   []*event.SubscriptionCancelled
	expiries  []*event.SubscriptionExpired
	redeemed  []*event.CashbackRedeemed
	shutdowns int
}

func (e *events) Name() string { return "events" }

func (e *events) OnLedgerInitialized(_ context.Context, evt *event.LedgerInitialized) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.init = append(e.init, evt)
	return nil
}

func (e *events) OnPaymentProcessed(_ context.Context, evt *event.PaymentProcessed) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payments = append(e.payments, evt)
	return nil
}

func (e *events) OnSubscriptionCancelled(_ context.Context, evt *event.SubscriptionCancelled) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels = append(e.cancels, evt)
	return nil
}

func (e *events) OnSubscriptionExpired(_ context.Context, evt *event.SubscriptionExpired) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expiries = append(e.expiries, evt)
	return nil
}

func (e *events) OnCashbackRedeemed(_ context.Context, evt *event.CashbackRedeemed) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.redeemed = append(e.redeemed, evt)
	return nil
}

func (e *events) OnShutdown(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdowns++
	return nil
}

type fixture struct {
	ledger *loyalty.Ledger
	store  *memory.Store
	tokens token.Service
	clock  *testClock
	events *events
}

type option func(*fixtureConfig)

type fixtureConfig struct {
	tokens   func(token.Service) token.Service
	skipInit bool
}

func withTokens(wrap func(token.Service) token.Service) option {
	return func(c *fixtureConfig) { c.tokens = wrap }
}

func uninitialized() option {
	return func(c *fixtureConfig) { c.skipInit = true }
}

// newFixture builds an initialized ledger where alice and bob each hold
// 1000 of the payment asset.
func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	ctx := context.Background()

	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	svc := tokens.New()
	if err := svc.RegisterAsset(ctx, loyalty.DefaultPaymentAsset, issuer); err != nil {
		t.Fatalf("register payment asset: %v", err)
	}
	if err := svc.RegisterAsset(ctx, loyalty.DefaultCashbackAsset, authority); err != nil {
		t.Fatalf("register cashback asset: %v", err)
	}
	for _, user := range []address.Address{alice, bob} {
		if _, err := svc.Mint(ctx, loyalty.DefaultPaymentAsset, user, 1000, issuer); err != nil {
			t.Fatalf("fund: %v", err)
		}
	}

	var ts token.Service = svc
	if cfg.tokens != nil {
		ts = cfg.tokens(svc)
	}

	f := &fixture{
		store:  memory.New(),
		tokens: ts,
		clock:  &testClock{now: time.Unix(1_700_000_000, 0)},
		events: &events{},
	}
	f.ledger = loyalty.New(f.store, f.tokens,
		loyalty.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		loyalty.WithClock(f.clock),
		loyalty.WithPlugin(f.events),
	)

	if !cfg.skipInit {
		if _, err := f.ledger.Initialize(ctx, authority); err != nil {
			t.Fatalf("initialize: %v", err)
		}
	}
	return f
}

func (f *fixture) pay(t *testing.T, user address.Address, subID uint64, amount, native types.Amount) *loyalty.PaymentResult {
	t.Helper()
	res, err := f.ledger.ProcessPayment(context.Background(), loyalty.PaymentRequest{
		User:           user,
		Authority:      authority,
		SubscriptionID: subID,
		Amount:         amount,
		NativeAmount:   native,
	})
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	return res
}

func (f *fixture) balance(t *testing.T, asset token.Asset, holder address.Address) types.Amount {
	t.Helper()
	bal, err := f.tokens.Balance(context.Background(), asset, holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func (f *fixture) state(t *testing.T) (subs, payments uint64, minted types.Amount) {
	t.Helper()
	st, err := f.ledger.GetState(context.Background())
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return st.TotalSubscriptions, st.TotalPayments, st.TotalCashbackMinted
}

// ──────────────────────────────────────────────────
// Initialize
// ──────────────────────────────────────────────────

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, uninitialized())

	if _, err := f.ledger.GetState(ctx); !errors.Is(err, loyalty.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized before init, got %v", err)
	}

	st, err := f.ledger.Initialize(ctx, authority)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if st.Authority != authority || st.TotalPayments != 0 || st.TotalSubscriptions != 0 || st.TotalCashbackMinted != 0 {
		t.Errorf("unexpected initial state: %+v", st)
	}
	if st.Address != address.LedgerState() {
		t.Errorf("state stored at %s", st.Address)
	}

	if _, err := f.ledger.Initialize(ctx, bob); !errors.Is(err, loyalty.ErrAlreadyInitialized) {
		t.Errorf("second initialize: expected ErrAlreadyInitialized, got %v", err)
	}
	got, _ := f.ledger.GetState(ctx)
	if got.Authority != authority {
		t.Error("failed re-initialize replaced the authority")
	}
	if len(f.events.init) != 1 {
		t.Errorf("init events = %d, want 1", len(f.events.init))
	}
}

func TestInitializeRejectsZeroAuthority(t *testing.T) {
	f := newFixture(t, uninitialized())
	_, err := f.ledger.Initialize(context.Background(), address.Zero)
	if !errors.Is(err, loyalty.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// ProcessPayment
// ──────────────────────────────────────────────────

func TestProcessPaymentScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res := f.pay(t, alice, 7, 1000, 50)

	if res.CashbackAmount != 100 {
		t.Errorf("cashback = %d, want 100", res.CashbackAmount)
	}
	if res.Payment.Status != payment.StatusCompleted {
		t.Errorf("payment status = %s", res.Payment.Status)
	}
	if res.Subscription.Status != subscription.StatusActive {
		t.Errorf("subscription status = %s", res.Subscription.Status)
	}
	if got := res.Subscription.ExpirationDate - res.Subscription.ActivationDate; got != 2_592_000 {
		t.Errorf("term = %d seconds, want 2592000", got)
	}
	if res.Subscription.CancellationDate != nil {
		t.Error("new subscription has a cancellation date")
	}

	stored, err := f.ledger.GetPayment(ctx, alice, 0)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if stored.Amount != 1000 || stored.NativeAmount != 50 || stored.SubscriptionID != 7 {
		t.Errorf("stored payment = %+v", stored)
	}
	if stored.Timestamp != f.clock.Now().Unix() {
		t.Errorf("payment timestamp = %d", stored.Timestamp)
	}
	if _, err := f.ledger.GetSubscription(ctx, alice, 7); err != nil {
		t.Errorf("get subscription: %v", err)
	}

	if got := f.balance(t, loyalty.DefaultPaymentAsset, alice); got != 950 {
		t.Errorf("alice native = %d, want 950", got)
	}
	if got := f.balance(t, loyalty.DefaultPaymentAsset, authority); got != 50 {
		t.Errorf("authority native = %d, want 50", got)
	}
	if got, _ := f.ledger.GetCashbackBalance(ctx, alice); got != 100 {
		t.Errorf("alice cashback = %d, want 100", got)
	}

	subs, payments, minted := f.state(t)
	if subs != 1 || payments != 1 || minted != 100 {
		t.Errorf("state = %d/%d/%d, want 1/1/100", subs, payments, minted)
	}

	if len(f.events.payments) != 1 {
		t.Fatalf("payment events = %d", len(f.events.payments))
	}
	evt := f.events.payments[0]
	if evt.User != alice || evt.SubscriptionID != 7 || evt.Amount != 1000 || evt.CashbackAmount != 100 {
		t.Errorf("event = %+v", evt)
	}
	if evt.ID.IsNil() {
		t.Error("event has no ID")
	}
}

func TestCashbackTruncates(t *testing.T) {
	tests := []struct {
		amount types.Amount
		want   types.Amount
	}{
		{105, 10},
		{1000, 100},
		{19, 1},
		{9, 0},
		{1, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.amount), func(t *testing.T) {
			f := newFixture(t)
			res := f.pay(t, alice, 1, tt.amount, 1)
			if res.CashbackAmount != tt.want {
				t.Errorf("cashback(%d) = %d, want %d", tt.amount, res.CashbackAmount, tt.want)
			}
			if got := f.balance(t, loyalty.DefaultCashbackAsset, alice); got != tt.want {
				t.Errorf("minted balance = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountersTrackEveryPayment(t *testing.T) {
	f := newFixture(t)
	amounts := []types.Amount{105, 1000, 37, 250, 9}

	var want types.Amount
	for i, amt := range amounts {
		user := alice
		if i%2 == 1 {
			user = bob
		}
		res := f.pay(t, user, uint64(i), amt, 10)
		if res.Payment.Sequence != uint64(i) {
			t.Errorf("payment %d has sequence %d", i, res.Payment.Sequence)
		}
		want += res.CashbackAmount
	}

	subs, payments, minted := f.state(t)
	n := uint64(len(amounts))
	if subs != n || payments != n {
		t.Errorf("counters = %d/%d, want %d", subs, payments, n)
	}
	if minted != want {
		t.Errorf("total minted = %d, want %d", minted, want)
	}
}

func TestProcessPaymentConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const perUser = 10
	var wg sync.WaitGroup
	errs := make(chan error, 2*perUser)
	for _, user := range []address.Address{alice, bob} {
		for i := 0; i < perUser; i++ {
			wg.Add(1)
			go func(user address.Address, subID uint64) {
				defer wg.Done()
				_, err := f.ledger.ProcessPayment(ctx, loyalty.PaymentRequest{
					User: user, Authority: authority, SubscriptionID: subID, Amount: 100, NativeAmount: 10,
				})
				errs <- err
			}(user, uint64(i))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent payment: %v", err)
		}
	}

	subs, payments, minted := f.state(t)
	if subs != 2*perUser || payments != 2*perUser || minted != 2*perUser*10 {
		t.Errorf("state = %d/%d/%d", subs, payments, minted)
	}
}

func TestProcessPaymentValidation(t *testing.T) {
	tests := []struct {
		name string
		req  loyalty.PaymentRequest
		want error
	}{
		{"zero amount", loyalty.PaymentRequest{User: alice, Authority: authority, Amount: 0, NativeAmount: 1}, loyalty.ErrInvalidAmount},
		{"zero native amount", loyalty.PaymentRequest{User: alice, Authority: authority, Amount: 1, NativeAmount: 0}, loyalty.ErrInvalidAmount},
		{"zero user", loyalty.PaymentRequest{Authority: authority, Amount: 1, NativeAmount: 1}, loyalty.ErrInvalidInput},
		{"wrong authority", loyalty.PaymentRequest{User: alice, Authority: bob, Amount: 1, NativeAmount: 1}, loyalty.ErrUnauthorized},
		{"overflow", loyalty.PaymentRequest{User: alice, Authority: authority, Amount: math.MaxUint64, NativeAmount: 1}, loyalty.ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.ledger.ProcessPayment(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if _, _, minted := f.state(t); minted != 0 {
				t.Error("rejected payment changed state")
			}
			if got := f.balance(t, loyalty.DefaultPaymentAsset, alice); got != 1000 {
				t.Errorf("alice native = %d, want 1000", got)
			}
		})
	}
}

func TestInvalidAmountIsInvalidInput(t *testing.T) {
	if !errors.Is(loyalty.ErrInvalidAmount, loyalty.ErrInvalidInput) {
		t.Fatal("ErrInvalidAmount should match ErrInvalidInput")
	}
}

func TestProcessPaymentRequiresInitialize(t *testing.T) {
	f := newFixture(t, uninitialized())
	_, err := f.ledger.ProcessPayment(context.Background(), loyalty.PaymentRequest{
		User: alice, Authority: authority, SubscriptionID: 1, Amount: 100, NativeAmount: 10,
	})
	if !errors.Is(err, loyalty.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestProcessPaymentInsufficientFundsIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.ProcessPayment(ctx, loyalty.PaymentRequest{
		User: alice, Authority: authority, SubscriptionID: 1, Amount: 1000, NativeAmount: 1001,
	})
	if !errors.Is(err, loyalty.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if _, err := f.ledger.GetPayment(ctx, alice, 0); !errors.Is(err, loyalty.ErrNotFound) {
		t.Errorf("payment record survived: %v", err)
	}
	if _, err := f.ledger.GetSubscription(ctx, alice, 1); !errors.Is(err, loyalty.ErrNotFound) {
		t.Errorf("subscription record survived: %v", err)
	}
	subs, payments, minted := f.state(t)
	if subs != 0 || payments != 0 || minted != 0 {
		t.Errorf("counters changed: %d/%d/%d", subs, payments, minted)
	}
	if got := f.balance(t, loyalty.DefaultPaymentAsset, alice); got != 1000 {
		t.Errorf("alice native = %d, want 1000", got)
	}
	if got := f.balance(t, loyalty.DefaultCashbackAsset, alice); got != 0 {
		t.Errorf("alice cashback = %d, want 0", got)
	}
	if len(f.events.payments) != 0 {
		t.Error("event emitted for failed payment")
	}
}

func TestProcessPaymentDuplicateSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.pay(t, alice, 42, 1000, 50)

	_, err := f.ledger.ProcessPayment(ctx, loyalty.PaymentRequest{
		User: alice, Authority: authority, SubscriptionID: 42, Amount: 500, NativeAmount: 30,
	})
	if !errors.Is(err, loyalty.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// The second attempt's transfer, mint and payment record are undone.
	if _, err := f.ledger.GetPayment(ctx, alice, 1); !errors.Is(err, loyalty.ErrNotFound) {
		t.Errorf("second payment record survived: %v", err)
	}
	if got := f.balance(t, loyalty.DefaultPaymentAsset, alice); got != 950 {
		t.Errorf("alice native = %d, want 950", got)
	}
	if got := f.balance(t, loyalty.DefaultCashbackAsset, alice); got != 100 {
		t.Errorf("alice cashback = %d, want 100", got)
	}

	// The first payment's effects remain intact.
	sub, err := f.ledger.GetSubscription(ctx, alice, 42)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub.Amount != first.Subscription.Amount || sub.Status != subscription.StatusActive {
		t.Errorf("first subscription modified: %+v", sub)
	}
	subs, payments, minted := f.state(t)
	if subs != 1 || payments != 1 || minted != 100 {
		t.Errorf("state = %d/%d/%d, want 1/1/100", subs, payments, minted)
	}

	// The same subscription ID is free for another user.
	f.pay(t, bob, 42, 1000, 50)
}

// failingReverse makes every compensation of a value transfer fail.
type failingReverse struct {
	token.Service
}

func (failingReverse) Reverse(context.Context, *token.Receipt) error {
	return errors.New("ledger offline")
}

func TestRollbackFailureIsReported(t *testing.T) {
	f := newFixture(t, withTokens(func(s token.Service) token.Service { return failingReverse{s} }))
	f.pay(t, alice, 1, 1000, 50)

	_, err := f.ledger.ProcessPayment(context.Background(), loyalty.PaymentRequest{
		User: alice, Authority: authority, SubscriptionID: 1, Amount: 1000, NativeAmount: 50,
	})
	if !errors.Is(err, loyalty.ErrAlreadyExists) {
		t.Errorf("original cause lost: %v", err)
	}
	if !errors.Is(err, loyalty.ErrRollbackFailed) {
		t.Errorf("expected ErrRollbackFailed, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// CancelSubscription
// ──────────────────────────────────────────────────

func TestCancelSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.pay(t, alice, 1, 1000, 50)
	f.clock.Advance(time.Hour)

	sub, err := f.ledger.CancelSubscription(ctx, alice, res.Subscription.Address)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if sub.Status != subscription.StatusCancelled {
		t.Errorf("status = %s", sub.Status)
	}
	if sub.CancellationDate == nil || *sub.CancellationDate != f.clock.Now().Unix() {
		t.Errorf("cancellation date = %v", sub.CancellationDate)
	}

	_, err = f.ledger.CancelSubscription(ctx, alice, res.Subscription.Address)
	if !errors.Is(err, loyalty.ErrSubscriptionNotActive) {
		t.Errorf("second cancel: expected ErrSubscriptionNotActive, got %v", err)
	}
	if len(f.events.cancels) != 1 {
		t.Errorf("cancel events = %d, want 1", len(f.events.cancels))
	}

	// No balance or counter side effects.
	subs, payments, minted := f.state(t)
	if subs != 1 || payments != 1 || minted != 100 {
		t.Errorf("state = %d/%d/%d", subs, payments, minted)
	}
}

func TestCancelSubscriptionUnauthorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.pay(t, alice, 1, 1000, 50)

	_, err := f.ledger.CancelSubscription(ctx, bob, res.Subscription.Address)
	if !errors.Is(err, loyalty.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	sub, err := f.ledger.GetSubscription(ctx, alice, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub.Status != subscription.StatusActive || sub.CancellationDate != nil {
		t.Errorf("subscription modified: %+v", sub)
	}
}

func TestCancelChecksOwnerBeforeStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.pay(t, alice, 1, 1000, 50)
	if _, err := f.ledger.CancelSubscription(ctx, alice, res.Subscription.Address); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.ledger.CancelSubscription(ctx, bob, res.Subscription.Address)
	if !errors.Is(err, loyalty.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCancelSubscriptionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.CancelSubscription(context.Background(), alice, address.Subscription(alice, 99))
	if !errors.Is(err, loyalty.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelAfterExpiration(t *testing.T) {
	f := newFixture(t)
	res := f.pay(t, alice, 1, 1000, 50)
	f.clock.Advance(subscription.Period)

	_, err := f.ledger.CancelSubscription(context.Background(), alice, res.Subscription.Address)
	if !errors.Is(err, loyalty.ErrSubscriptionNotActive) {
		t.Fatalf("expected ErrSubscriptionNotActive, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Expiry
// ──────────────────────────────────────────────────

func TestExpireSubscriptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pay(t, alice, 1, 1000, 50)
	f.pay(t, bob, 1, 1000, 50)
	cancelled := f.pay(t, alice, 2, 1000, 50)
	if _, err := f.ledger.CancelSubscription(ctx, alice, cancelled.Subscription.Address); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	n, err := f.ledger.ExpireSubscriptions(ctx)
	if err != nil || n != 0 {
		t.Fatalf("early sweep = %d, %v", n, err)
	}

	f.clock.Advance(subscription.Period)
	n, err = f.ledger.ExpireSubscriptions(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("expired = %d, want 2", n)
	}

	sub, _ := f.ledger.GetSubscription(ctx, alice, 1)
	if sub.Status != subscription.StatusExpired {
		t.Errorf("alice/1 status = %s", sub.Status)
	}
	sub, _ = f.ledger.GetSubscription(ctx, alice, 2)
	if sub.Status != subscription.StatusCancelled {
		t.Errorf("cancelled subscription became %s", sub.Status)
	}
	if len(f.events.expiries) != 2 {
		t.Errorf("expiry events = %d, want 2", len(f.events.expiries))
	}

	if n, _ := f.ledger.ExpireSubscriptions(ctx); n != 0 {
		t.Errorf("repeat sweep expired %d", n)
	}
}

// ──────────────────────────────────────────────────
// RedeemCashback
// ──────────────────────────────────────────────────

func TestRedeemCashback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pay(t, alice, 1, 1000, 50)

	r, err := f.ledger.RedeemCashback(ctx, loyalty.RedeemRequest{User: alice, Amount: 40})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if r.Amount != 40 || r.User != alice || r.Timestamp != f.clock.Now().Unix() {
		t.Errorf("redemption = %+v", r)
	}
	if got, _ := f.ledger.GetCashbackBalance(ctx, alice); got != 60 {
		t.Errorf("cashback = %d, want 60", got)
	}
	if _, err := f.ledger.GetRedemption(ctx, alice, r.Timestamp); err != nil {
		t.Errorf("get redemption: %v", err)
	}

	// Issuance history is never reduced by burns.
	if _, _, minted := f.state(t); minted != 100 {
		t.Errorf("total minted = %d, want 100", minted)
	}
	if len(f.events.redeemed) != 1 || f.events.redeemed[0].Amount != 40 {
		t.Errorf("redeem events = %+v", f.events.redeemed)
	}
}

func TestRedeemCashbackInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pay(t, alice, 1, 1000, 50)

	_, err := f.ledger.RedeemCashback(ctx, loyalty.RedeemRequest{User: alice, Amount: 101})
	if !errors.Is(err, loyalty.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := f.ledger.GetRedemption(ctx, alice, f.clock.Now().Unix()); !errors.Is(err, loyalty.ErrNotFound) {
		t.Errorf("redemption record survived: %v", err)
	}
	list, _ := f.ledger.ListRedemptions(ctx, alice, redemption.ListOpts{})
	if len(list) != 0 {
		t.Errorf("redemptions = %d, want 0", len(list))
	}
	if got, _ := f.ledger.GetCashbackBalance(ctx, alice); got != 100 {
		t.Errorf("cashback = %d, want 100", got)
	}
}

func TestRedeemCashbackSameSecond(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pay(t, alice, 1, 1000, 50)

	if _, err := f.ledger.RedeemCashback(ctx, loyalty.RedeemRequest{User: alice, Amount: 10}); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	_, err := f.ledger.RedeemCashback(ctx, loyalty.RedeemRequest{User: alice, Amount: 10})
	if !errors.Is(err, loyalty.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if got, _ := f.ledger.GetCashbackBalance(ctx, alice); got != 90 {
		t.Errorf("cashback = %d, want 90", got)
	}

	f.clock.Advance(time.Second)
	if _, err := f.ledger.RedeemCashback(ctx, loyalty.RedeemRequest{User: alice, Amount: 10}); err != nil {
		t.Fatalf("redeem next second: %v", err)
	}
}

func TestRedeemCashbackZeroAmount(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.RedeemCashback(context.Background(), loyalty.RedeemRequest{User: alice})
	if !errors.Is(err, loyalty.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.ledger.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.ledger.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := f.ledger.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if f.events.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", f.events.shutdowns)
	}
	if err := f.store.Ping(ctx); !errors.Is(err, loyalty.ErrStoreClosed) {
		t.Errorf("store still open after stop: %v", err)
	}
}

func TestExpiryWorker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ledger = loyalty.New(f.store, f.tokens,
		loyalty.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		loyalty.WithClock(f.clock),
		loyalty.WithExpiryScan(5*time.Millisecond, 10),
	)
	f.pay(t, alice, 1, 1000, 50)
	f.clock.Advance(subscription.Period + time.Second)

	if err := f.ledger.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer f.ledger.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sub, err := f.ledger.GetSubscription(ctx, alice, 1)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if sub.Status == subscription.StatusExpired {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("worker did not expire the subscription")
}

// migrationless is a store whose schema is managed elsewhere.
type migrationless struct {
	*memory.Store
}

func (migrationless) Migrate(context.Context) error {
	return errors.New("schema is read-only")
}

func TestWithoutMigrateStillRunsWorkers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pay(t, alice, 1, 1000, 50)
	f.clock.Advance(subscription.Period + time.Second)

	s := migrationless{f.store}
	newLedger := func(opts ...loyalty.Option) *loyalty.Ledger {
		base := []loyalty.Option{
			loyalty.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			loyalty.WithClock(f.clock),
			loyalty.WithExpiryScan(5*time.Millisecond, 10),
		}
		return loyalty.New(s, f.tokens, append(base, opts...)...)
	}

	if err := newLedger().Start(ctx); err == nil {
		t.Fatal("expected migrate error without WithoutMigrate")
	}

	l := newLedger(loyalty.WithoutMigrate())
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sub, err := l.GetSubscription(ctx, alice, 1)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if sub.Status == subscription.StatusExpired {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expiry worker did not run with migrations disabled")
}
