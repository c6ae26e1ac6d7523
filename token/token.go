// Package token defines the boundary to the value-transfer service that
// moves, mints, and burns fungible balances on behalf of the ledger.
package token

import (
	"context"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/id"
	"github.com/xraph/loyalty/types"
)

// Asset names a fungible asset, e.g. the payment currency or the cashback
// credit.
type Asset string

// Kind is the operation a receipt records.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindMint     Kind = "mint"
	KindBurn     Kind = "burn"
)

// Receipt records a completed balance movement so it can be reversed if the
// enclosing operation aborts.
type Receipt struct {
	ID        id.ID           `json:"id"`
	Kind      Kind            `json:"kind"`
	Asset     Asset           `json:"asset"`
	From      address.Address `json:"from"`
	To        address.Address `json:"to"`
	Amount    types.Amount    `json:"amount"`
	Authority address.Address `json:"authority"`
}

// Service is the value-transfer capability the ledger consumes.
//
// Implementations must apply each call atomically and return the loyalty
// sentinel errors: ErrInsufficientFunds from Transfer, ErrInsufficientBalance
// from Burn, ErrUnauthorized for a wrong mint or burn authority,
// ErrAssetNotFound for unknown assets, ErrOverflow when a credit would exceed
// the uint64 domain.
type Service interface {
	// RegisterAsset declares asset with the identity allowed to mint it.
	RegisterAsset(ctx context.Context, asset Asset, mintAuthority address.Address) error
	Transfer(ctx context.Context, asset Asset, from, to address.Address, amount types.Amount) (*Receipt, error)
	Mint(ctx context.Context, asset Asset, to address.Address, amount types.Amount, authority address.Address) (*Receipt, error)
	Burn(ctx context.Context, asset Asset, from address.Address, amount types.Amount, authority address.Address) (*Receipt, error)
	Balance(ctx context.Context, asset Asset, holder address.Address) (types.Amount, error)
	// Reverse undoes a receipt exactly once.
	Reverse(ctx context.Context, r *Receipt) error
}
