package loyalty

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/event"
	"github.com/xraph/loyalty/ledgerstate"
	"github.com/xraph/loyalty/types"
)

// ──────────────────────────────────────────────────
// Ledger State
// ──────────────────────────────────────────────────

// Initialize creates the singleton ledger state with zeroed counters and
// authority as its administrator. It fails with ErrAlreadyInitialized on
// every call after the first.
func (l *Ledger) Initialize(ctx context.Context, authority address.Address) (*ledgerstate.State, error) {
	if authority.IsZero() {
		return nil, ValidationError{Field: "authority", Message: "must not be the zero address"}
	}

	now := l.clock.Now()
	st := &ledgerstate.State{
		Entity:    types.NewEntity(now),
		Address:   address.LedgerState(),
		Authority: authority,
	}

	err := l.atomically(ctx, "initialize", func(_ *unit) error {
		if err := l.store.CreateState(ctx, st); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				return ErrAlreadyInitialized
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loyalty: initialize: %w", err)
	}

	l.logger.Info("ledger initialized", "authority", authority.Short())
	l.plugins.EmitLedgerInitialized(ctx, &event.LedgerInitialized{
		Meta:      event.NewMeta(now.Unix()),
		Authority: authority,
	})

	return st.Clone(), nil
}

// loadState reads the singleton, mapping a missing record to
// ErrNotInitialized.
func (l *Ledger) loadState(ctx context.Context) (*ledgerstate.State, error) {
	st, err := l.store.GetState(ctx, address.LedgerState())
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotInitialized
	}
	return st, err
}

// increment adds one to a counter, refusing to wrap.
func increment(n uint64) (uint64, error) {
	if n == math.MaxUint64 {
		return 0, ErrOverflow
	}
	return n + 1, nil
}
