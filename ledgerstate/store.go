package ledgerstate

import (
	"context"

	"github.com/xraph/loyalty/address"
)

// Store persists the ledger state record.
type Store interface {
	// CreateState fails with an already-exists error if a record lives at
	// s.Address.
	CreateState(ctx context.Context, s *State) error
	GetState(ctx context.Context, addr address.Address) (*State, error)
	// UpdateState replaces the record only while the stored TotalPayments
	// still equals prevPayments, and fails with a conflict error otherwise.
	UpdateState(ctx context.Context, s *State, prevPayments uint64) error
}
