package redemption

import (
	"context"

	"github.com/xraph/loyalty/address"
)

// Store persists redemption records. DeleteRedemption only compensates a
// create inside an aborted operation.
type Store interface {
	CreateRedemption(ctx context.Context, r *Redemption) error
	GetRedemption(ctx context.Context, addr address.Address) (*Redemption, error)
	ListRedemptions(ctx context.Context, user address.Address, opts ListOpts) ([]*Redemption, error)
	DeleteRedemption(ctx context.Context, addr address.Address) error
}
