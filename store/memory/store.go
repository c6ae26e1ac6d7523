// Package memory provides an in-memory Record Store for tests and
// single-process deployments.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/ledgerstate"
	"github.com/xraph/loyalty/payment"
	"github.com/xraph/loyalty/redemption"
	"github.com/xraph/loyalty/store"
	"github.com/xraph/loyalty/subscription"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps every record in a map keyed by its derived address. Records
// are copied on the way in and out so callers never alias stored state.
type Store struct {
	mu     sync.RWMutex
	closed bool

	states        map[address.Address]*ledgerstate.State
	payments      map[address.Address]*payment.Payment
	subscriptions map[address.Address]*subscription.Subscription
	redemptions   map[address.Address]*redemption.Redemption
}

func New() *Store {
	return &Store{
		states:        make(map[address.Address]*ledgerstate.State),
		payments:      make(map[address.Address]*payment.Payment),
		subscriptions: make(map[address.Address]*subscription.Subscription),
		redemptions:   make(map[address.Address]*redemption.Redemption),
	}
}

// Ledger state Store implementation
func (s *Store) CreateState(_ context.Context, st *ledgerstate.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	if _, exists := s.states[st.Address]; exists {
		return fmt.Errorf("%w: ledger state %s", loyalty.ErrAlreadyExists, st.Address.Short())
	}
	s.states[st.Address] = st.Clone()
	return nil
}

func (s *Store) GetState(_ context.Context, addr address.Address) (*ledgerstate.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, loyalty.ErrStoreClosed
	}
	if st, ok := s.states[addr]; ok {
		return st.Clone(), nil
	}
	return nil, fmt.Errorf("%w: ledger state %s", loyalty.ErrNotFound, addr.Short())
}

func (s *Store) UpdateState(_ context.Context, st *ledgerstate.State, prevPayments uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	cur, exists := s.states[st.Address]
	if !exists {
		return fmt.Errorf("%w: ledger state %s", loyalty.ErrNotFound, st.Address.Short())
	}
	if cur.TotalPayments != prevPayments {
		return fmt.Errorf("%w: ledger state %s moved to %d payments", loyalty.ErrConflict, st.Address.Short(), cur.TotalPayments)
	}
	s.states[st.Address] = st.Clone()
	return nil
}

// Payment Store implementation
func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	if _, exists := s.payments[p.Address]; exists {
		return fmt.Errorf("%w: payment %s", loyalty.ErrAlreadyExists, p.Address.Short())
	}
	c := *p
	s.payments[p.Address] = &c
	return nil
}

func (s *Store) GetPayment(_ context.Context, addr address.Address) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, loyalty.ErrStoreClosed
	}
	if p, ok := s.payments[addr]; ok {
		c := *p
		return &c, nil
	}
	return nil, fmt.Errorf("%w: payment %s", loyalty.ErrNotFound, addr.Short())
}

func (s *Store) ListPayments(_ context.Context, user address.Address, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, loyalty.ErrStoreClosed
	}
	result := make([]*payment.Payment, 0)
	for _, p := range s.payments {
		if p.User == user {
			c := *p
			result = append(result, &c)
		}
	}
	slices.SortFunc(result, func(a, b *payment.Payment) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) DeletePayment(_ context.Context, addr address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	delete(s.payments, addr)
	return nil
}

// Subscription Store implementation
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	if _, exists := s.subscriptions[sub.Address]; exists {
		return fmt.Errorf("%w: subscription %s", loyalty.ErrAlreadyExists, sub.Address.Short())
	}
	s.subscriptions[sub.Address] = sub.Clone()
	return nil
}

func (s *Store) GetSubscription(_ context.Context, addr address.Address) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, loyalty.ErrStoreClosed
	}
	if sub, ok := s.subscriptions[addr]; ok {
		return sub.Clone(), nil
	}
	return nil, fmt.Errorf("%w: subscription %s", loyalty.ErrNotFound, addr.Short())
}

func (s *Store) ListSubscriptions(_ context.Context, user address.Address, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, loyalty.ErrStoreClosed
	}
	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.User == user && (opts.Status == "" || sub.Status == opts.Status) {
			result = append(result, sub.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *subscription.Subscription) int {
		return cmp.Or(
			cmp.Compare(a.ActivationDate, b.ActivationDate),
			cmp.Compare(a.SubscriptionID, b.SubscriptionID),
		)
	})
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListDueSubscriptions(_ context.Context, asOf int64, limit int) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, loyalty.ErrStoreClosed
	}
	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.Status == subscription.StatusActive && sub.ExpirationDate <= asOf {
			result = append(result, sub.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *subscription.Subscription) int {
		return cmp.Compare(a.ExpirationDate, b.ExpirationDate)
	})
	return page(result, 0, limit), nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	if _, exists := s.subscriptions[sub.Address]; !exists {
		return fmt.Errorf("%w: subscription %s", loyalty.ErrNotFound, sub.Address.Short())
	}
	s.subscriptions[sub.Address] = sub.Clone()
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, addr address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	delete(s.subscriptions, addr)
	return nil
}

// Redemption Store implementation
func (s *Store) CreateRedemption(_ context.Context, r *redemption.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	if _, exists := s.redemptions[r.Address]; exists {
		return fmt.Errorf("%w: redemption %s", loyalty.ErrAlreadyExists, r.Address.Short())
	}
	c := *r
	s.redemptions[r.Address] = &c
	return nil
}

func (s *Store) GetRedemption(_ context.Context, addr address.Address) (*redemption.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, loyalty.ErrStoreClosed
	}
	if r, ok := s.redemptions[addr]; ok {
		c := *r
		return &c, nil
	}
	return nil, fmt.Errorf("%w: redemption %s", loyalty.ErrNotFound, addr.Short())
}

func (s *Store) ListRedemptions(_ context.Context, user address.Address, opts redemption.ListOpts) ([]*redemption.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, loyalty.ErrStoreClosed
	}
	result := make([]*redemption.Redemption, 0)
	for _, r := range s.redemptions {
		if r.User == user {
			c := *r
			result = append(result, &c)
		}
	}
	slices.SortFunc(result, func(a, b *redemption.Redemption) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) DeleteRedemption(_ context.Context, addr address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	delete(s.redemptions, addr)
	return nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return loyalty.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// page applies offset/limit. A zero limit returns everything after offset.
func page[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	if start < 0 {
		start = 0
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
