package memory_test

import (
	"context"
	"errors"
	"testing"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/token"
	"github.com/xraph/loyalty/token/memory"
	"github.com/xraph/loyalty/types"
)

const (
	usd      token.Asset = "USD"
	cashback token.Asset = "CASHBACK"
)

var (
	issuer = address.Account("issuer")
	alice  = address.Account("alice")
	bob    = address.Account("bob")
)

func setup(t *testing.T) *memory.Service {
	t.Helper()
	ctx := context.Background()
	svc := memory.New()
	if err := svc.RegisterAsset(ctx, usd, issuer); err != nil {
		t.Fatalf("register usd: %v", err)
	}
	if err := svc.RegisterAsset(ctx, cashback, issuer); err != nil {
		t.Fatalf("register cashback: %v", err)
	}
	if _, err := svc.Mint(ctx, usd, alice, 1000, issuer); err != nil {
		t.Fatalf("fund alice: %v", err)
	}
	return svc
}

func balance(t *testing.T, svc *memory.Service, asset token.Asset, holder address.Address) types.Amount {
	t.Helper()
	bal, err := svc.Balance(context.Background(), asset, holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestRegisterAssetTwice(t *testing.T) {
	svc := setup(t)
	err := svc.RegisterAsset(context.Background(), usd, issuer)
	if !errors.Is(err, loyalty.ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	r, err := svc.Transfer(ctx, usd, alice, bob, 300)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if r.Kind != token.KindTransfer || r.Amount != 300 {
		t.Errorf("unexpected receipt: %+v", r)
	}
	if got := balance(t, svc, usd, alice); got != 700 {
		t.Errorf("alice = %d, want 700", got)
	}
	if got := balance(t, svc, usd, bob); got != 300 {
		t.Errorf("bob = %d, want 300", got)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	svc := setup(t)

	_, err := svc.Transfer(context.Background(), usd, alice, bob, 1001)
	if !errors.Is(err, loyalty.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balance(t, svc, usd, alice); got != 1000 {
		t.Errorf("alice = %d, want 1000", got)
	}
}

func TestUnknownAsset(t *testing.T) {
	svc := setup(t)
	_, err := svc.Transfer(context.Background(), "EUR", alice, bob, 1)
	if !errors.Is(err, loyalty.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestMintRequiresAuthority(t *testing.T) {
	svc := setup(t)
	_, err := svc.Mint(context.Background(), cashback, alice, 10, alice)
	if !errors.Is(err, loyalty.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMintOverflow(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	if _, err := svc.Mint(ctx, cashback, bob, types.Amount(^uint64(0)), issuer); err != nil {
		t.Fatalf("mint max: %v", err)
	}
	_, err := svc.Mint(ctx, cashback, bob, 1, issuer)
	if !errors.Is(err, loyalty.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestBurn(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	if _, err := svc.Mint(ctx, cashback, alice, 50, issuer); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := svc.Burn(ctx, cashback, alice, 20, bob); !errors.Is(err, loyalty.ErrUnauthorized) {
		t.Errorf("burn by non-holder: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Burn(ctx, cashback, alice, 51, alice); !errors.Is(err, loyalty.ErrInsufficientBalance) {
		t.Errorf("overdraw: expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := svc.Burn(ctx, cashback, alice, 20, alice); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := balance(t, svc, cashback, alice); got != 30 {
		t.Errorf("cashback = %d, want 30", got)
	}
}

func TestReverse(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		apply  func(*memory.Service) (*token.Receipt, error)
		asset  token.Asset
		holder address.Address
		want   types.Amount
	}{
		{
			name:  "transfer",
			apply: func(s *memory.Service) (*token.Receipt, error) { return s.Transfer(ctx, usd, alice, bob, 400) },
			asset: usd, holder: alice, want: 1000,
		},
		{
			name:  "mint",
			apply: func(s *memory.Service) (*token.Receipt, error) { return s.Mint(ctx, cashback, alice, 40, issuer) },
			asset: cashback, holder: alice, want: 0,
		},
		{
			name:  "burn",
			apply: func(s *memory.Service) (*token.Receipt, error) { return s.Burn(ctx, usd, alice, 250, alice) },
			asset: usd, holder: alice, want: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setup(t)
			r, err := tt.apply(svc)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if err := svc.Reverse(ctx, r); err != nil {
				t.Fatalf("reverse: %v", err)
			}
			if got := balance(t, svc, tt.asset, tt.holder); got != tt.want {
				t.Errorf("balance after reverse = %d, want %d", got, tt.want)
			}
			if err := svc.Reverse(ctx, r); !errors.Is(err, loyalty.ErrAlreadyReversed) {
				t.Errorf("second reverse: expected ErrAlreadyReversed, got %v", err)
			}
		})
	}
}

func TestReverseUnknownReceipt(t *testing.T) {
	svc := setup(t)
	other := memory.New()
	if err := other.RegisterAsset(context.Background(), usd, issuer); err != nil {
		t.Fatalf("register: %v", err)
	}
	r, err := other.Mint(context.Background(), usd, bob, 1, issuer)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Reverse(context.Background(), r); !errors.Is(err, loyalty.ErrReceiptNotFound) {
		t.Fatalf("expected ErrReceiptNotFound, got %v", err)
	}
}
