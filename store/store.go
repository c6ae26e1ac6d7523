// Package store defines the unified Record Store consumed by the ledger.
package store

import (
	"context"

	"github.com/xraph/loyalty/ledgerstate"
	"github.com/xraph/loyalty/payment"
	"github.com/xraph/loyalty/redemption"
	"github.com/xraph/loyalty/subscription"
)

// Store is the unified storage interface for all loyalty records. Every
// record is addressed by its derived address; Create* methods fail with
// loyalty.ErrAlreadyExists when the address is taken and Get* methods with
// loyalty.ErrNotFound when it is empty.
type Store interface {
	ledgerstate.Store
	payment.Store
	subscription.Store
	redemption.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
