// Package memory provides an in-process token.Service for tests and
// single-node deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/id"
	"github.com/xraph/loyalty/token"
	"github.com/xraph/loyalty/types"
)

// compile-time interface check
var _ token.Service = (*Service)(nil)

type balanceKey struct {
	asset  token.Asset
	holder address.Address
}

// Service keeps balances and the receipt journal in maps.
type Service struct {
	mu sync.Mutex

	mintAuthority map[token.Asset]address.Address
	balances      map[balanceKey]types.Amount
	receipts      map[string]*token.Receipt
	reversed      map[string]bool
}

// New creates an empty Service.
func New() *Service {
	return &Service{
		mintAuthority: make(map[token.Asset]address.Address),
		balances:      make(map[balanceKey]types.Amount),
		receipts:      make(map[string]*token.Receipt),
		reversed:      make(map[string]bool),
	}
}

func (s *Service) RegisterAsset(_ context.Context, asset token.Asset, mintAuthority address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mintAuthority[asset]; exists {
		return fmt.Errorf("%w: %s", loyalty.ErrAssetExists, asset)
	}
	s.mintAuthority[asset] = mintAuthority
	return nil
}

func (s *Service) Transfer(_ context.Context, asset token.Asset, from, to address.Address, amount types.Amount) (*token.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAsset(asset); err != nil {
		return nil, err
	}
	if err := s.move(asset, from, to, amount, loyalty.ErrInsufficientFunds); err != nil {
		return nil, err
	}
	return s.journal(token.KindTransfer, asset, from, to, amount, from), nil
}

func (s *Service) Mint(_ context.Context, asset token.Asset, to address.Address, amount types.Amount, authority address.Address) (*token.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAsset(asset); err != nil {
		return nil, err
	}
	if s.mintAuthority[asset] != authority {
		return nil, fmt.Errorf("%w: %s is not the mint authority of %s", loyalty.ErrUnauthorized, authority.Short(), asset)
	}
	if err := s.credit(asset, to, amount); err != nil {
		return nil, err
	}
	return s.journal(token.KindMint, asset, address.Zero, to, amount, authority), nil
}

func (s *Service) Burn(_ context.Context, asset token.Asset, from address.Address, amount types.Amount, authority address.Address) (*token.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAsset(asset); err != nil {
		return nil, err
	}
	if authority != from {
		return nil, fmt.Errorf("%w: burn must be authorized by the holder", loyalty.ErrUnauthorized)
	}
	if err := s.debit(asset, from, amount, loyalty.ErrInsufficientBalance); err != nil {
		return nil, err
	}
	return s.journal(token.KindBurn, asset, from, address.Zero, amount, authority), nil
}

func (s *Service) Balance(_ context.Context, asset token.Asset, holder address.Address) (types.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAsset(asset); err != nil {
		return 0, err
	}
	return s.balances[balanceKey{asset, holder}], nil
}

func (s *Service) Reverse(_ context.Context, r *token.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.ID.String()
	if _, ok := s.receipts[key]; !ok {
		return fmt.Errorf("%w: %s", loyalty.ErrReceiptNotFound, key)
	}
	if s.reversed[key] {
		return fmt.Errorf("%w: %s", loyalty.ErrAlreadyReversed, key)
	}

	var err error
	switch r.Kind {
	case token.KindTransfer:
		err = s.move(r.Asset, r.To, r.From, r.Amount, loyalty.ErrInsufficientFunds)
	case token.KindMint:
		err = s.debit(r.Asset, r.To, r.Amount, loyalty.ErrInsufficientBalance)
	case token.KindBurn:
		err = s.credit(r.Asset, r.From, r.Amount)
	default:
		err = fmt.Errorf("%w: unknown receipt kind %q", loyalty.ErrInvalidInput, r.Kind)
	}
	if err != nil {
		return err
	}
	s.reversed[key] = true
	return nil
}

// ==================== Helpers ====================

func (s *Service) requireAsset(asset token.Asset) error {
	if _, ok := s.mintAuthority[asset]; !ok {
		return fmt.Errorf("%w: %s", loyalty.ErrAssetNotFound, asset)
	}
	return nil
}

// move debits from and credits to, leaving both untouched on failure.
func (s *Service) move(asset token.Asset, from, to address.Address, amount types.Amount, shortfall error) error {
	fromKey, toKey := balanceKey{asset, from}, balanceKey{asset, to}
	fromBal, err := s.balances[fromKey].Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: have %d, need %d", shortfall, s.balances[fromKey], amount)
	}
	if from == to {
		return nil
	}
	toBal, err := s.balances[toKey].Add(amount)
	if err != nil {
		return err
	}
	s.balances[fromKey] = fromBal
	s.balances[toKey] = toBal
	return nil
}

func (s *Service) credit(asset token.Asset, to address.Address, amount types.Amount) error {
	key := balanceKey{asset, to}
	next, err := s.balances[key].Add(amount)
	if err != nil {
		return err
	}
	s.balances[key] = next
	return nil
}

func (s *Service) debit(asset token.Asset, from address.Address, amount types.Amount, shortfall error) error {
	key := balanceKey{asset, from}
	next, err := s.balances[key].Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: have %d, need %d", shortfall, s.balances[key], amount)
	}
	s.balances[key] = next
	return nil
}

func (s *Service) journal(kind token.Kind, asset token.Asset, from, to address.Address, amount types.Amount, authority address.Address) *token.Receipt {
	r := &token.Receipt{
		ID:        id.NewReceiptID(),
		Kind:      kind,
		Asset:     asset,
		From:      from,
		To:        to,
		Amount:    amount,
		Authority: authority,
	}
	s.receipts[r.ID.String()] = r
	c := *r
	return &c
}
