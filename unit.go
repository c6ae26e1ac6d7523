package loyalty

import (
	"context"
	"errors"
	"fmt"
)

// unit is one all-or-nothing operation. Every step that changes the store
// or a balance registers a compensation; if the operation fails, the
// compensations run newest first.
type unit struct {
	op   string
	undo []compensation
}

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// onRollback registers fn to undo the step that just succeeded.
func (u *unit) onRollback(name string, fn func(ctx context.Context) error) {
	u.undo = append(u.undo, compensation{name: name, fn: fn})
}

// rollback runs every compensation even when some fail, and reports each
// failure wrapped in ErrRollbackFailed.
func (u *unit) rollback(ctx context.Context) error {
	var errs []error
	for i := len(u.undo) - 1; i >= 0; i-- {
		c := u.undo[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %s: %w", ErrRollbackFailed, u.op, c.name, err))
		}
	}
	return errors.Join(errs...)
}

// atomically runs fn as a unit of work under the engine's write lock.
// Compensations run on a context detached from cancellation so an aborted
// caller cannot leave a half-applied operation behind.
func (l *Ledger) atomically(ctx context.Context, op string, fn func(u *unit) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := &unit{op: op}
	err := fn(u)
	if err == nil {
		return nil
	}

	if rbErr := u.rollback(context.WithoutCancel(ctx)); rbErr != nil {
		l.logger.Error("rollback incomplete",
			"op", op,
			"error", err,
			"rollback_error", rbErr,
		)
		return errors.Join(err, rbErr)
	}

	l.logger.Debug("operation rolled back",
		"op", op,
		"steps", len(u.undo),
		"error", err,
	)
	return err
}
