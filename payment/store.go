package payment

import (
	"context"

	"github.com/xraph/loyalty/address"
)

// Store persists payment records. Payments are immutable once created;
// DeletePayment exists only to compensate a create inside an aborted
// operation.
type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, addr address.Address) (*Payment, error)
	ListPayments(ctx context.Context, user address.Address, opts ListOpts) ([]*Payment, error)
	DeletePayment(ctx context.Context, addr address.Address) error
}
