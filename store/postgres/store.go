package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/ledgerstate"
	"github.com/xraph/loyalty/payment"
	"github.com/xraph/loyalty/redemption"
	loyaltystore "github.com/xraph/loyalty/store"
	"github.com/xraph/loyalty/subscription"
)

// compile-time interface check
var _ loyaltystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("loyalty/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("loyalty/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Ledger State Store ====================

func (s *Store) CreateState(ctx context.Context, st *ledgerstate.State) error {
	res, err := s.pg.NewInsert(toStateModel(st)).
		OnConflict("(address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	return insertedOrExists(res, "ledger state", st.Address)
}

func (s *Store) GetState(ctx context.Context, addr address.Address) (*ledgerstate.State, error) {
	m := new(stateModel)
	err := s.pg.NewSelect(m).
		Where("address = $1", addr.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("ledger state", addr)
		}
		return nil, err
	}
	return fromStateModel(m)
}

func (s *Store) UpdateState(ctx context.Context, st *ledgerstate.State, prevPayments uint64) error {
	res, err := s.pg.NewUpdate(toStateModel(st)).
		WherePK().
		Where("total_payments = ?", formatUint(prevPayments)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.stateConflict(ctx, st.Address)
	}
	return nil
}

// stateConflict tells a missing state row apart from a lost compare-and-swap.
func (s *Store) stateConflict(ctx context.Context, addr address.Address) error {
	cur, err := s.GetState(ctx, addr)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: ledger state %s moved to %d payments", loyalty.ErrConflict, addr.Short(), cur.TotalPayments)
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	res, err := s.pg.NewInsert(toPaymentModel(p)).
		OnConflict("(address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	return insertedOrExists(res, "payment", p.Address)
}

func (s *Store) GetPayment(ctx context.Context, addr address.Address) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("address = $1", addr.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("payment", addr)
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) ListPayments(ctx context.Context, user address.Address, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.pg.NewSelect(&models).
		Where("user_address = $1", user.String()).
		OrderExpr("sequence ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*payment.Payment, 0, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) DeletePayment(ctx context.Context, addr address.Address) error {
	res, err := s.pg.NewDelete((*paymentModel)(nil)).
		Where("address = $1", addr.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return updatedOrMissing(res, "payment", addr)
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	res, err := s.pg.NewInsert(toSubscriptionModel(sub)).
		OnConflict("(address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	return insertedOrExists(res, "subscription", sub.Address)
}

func (s *Store) GetSubscription(ctx context.Context, addr address.Address) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("address = $1", addr.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("subscription", addr)
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptions(ctx context.Context, user address.Address, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models).Where("user_address = $1", user.String())
	if opts.Status != "" {
		q = q.Where("status = $2", string(opts.Status))
	}
	q = q.OrderExpr("activation_date ASC, subscription_id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromSubscriptionModels(models)
}

func (s *Store) ListDueSubscriptions(ctx context.Context, asOf int64, limit int) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models).
		Where("status = $1", string(subscription.StatusActive)).
		Where("expiration_date <= $2", asOf).
		OrderExpr("expiration_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromSubscriptionModels(models)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	res, err := s.pg.NewUpdate(toSubscriptionModel(sub)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return updatedOrMissing(res, "subscription", sub.Address)
}

func (s *Store) DeleteSubscription(ctx context.Context, addr address.Address) error {
	res, err := s.pg.NewDelete((*subscriptionModel)(nil)).
		Where("address = $1", addr.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return updatedOrMissing(res, "subscription", addr)
}

func fromSubscriptionModels(models []subscriptionModel) ([]*subscription.Subscription, error) {
	out := make([]*subscription.Subscription, 0, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

// ==================== Redemption Store ====================

func (s *Store) CreateRedemption(ctx context.Context, r *redemption.Redemption) error {
	res, err := s.pg.NewInsert(toRedemptionModel(r)).
		OnConflict("(address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	return insertedOrExists(res, "redemption", r.Address)
}

func (s *Store) GetRedemption(ctx context.Context, addr address.Address) (*redemption.Redemption, error) {
	m := new(redemptionModel)
	err := s.pg.NewSelect(m).
		Where("address = $1", addr.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("redemption", addr)
		}
		return nil, err
	}
	return fromRedemptionModel(m)
}

func (s *Store) ListRedemptions(ctx context.Context, user address.Address, opts redemption.ListOpts) ([]*redemption.Redemption, error) {
	var models []redemptionModel
	q := s.pg.NewSelect(&models).
		Where("user_address = $1", user.String()).
		OrderExpr("timestamp ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*redemption.Redemption, 0, len(models))
	for i := range models {
		r, err := fromRedemptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) DeleteRedemption(ctx context.Context, addr address.Address) error {
	res, err := s.pg.NewDelete((*redemptionModel)(nil)).
		Where("address = $1", addr.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return updatedOrMissing(res, "redemption", addr)
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type rowsResult interface {
	RowsAffected() (int64, error)
}

func notFound(kind string, addr address.Address) error {
	return fmt.Errorf("%w: %s %s", loyalty.ErrNotFound, kind, addr.Short())
}

// insertedOrExists maps an ON CONFLICT DO NOTHING insert that touched no
// rows to ErrAlreadyExists.
func insertedOrExists(res rowsResult, kind string, addr address.Address) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", loyalty.ErrAlreadyExists, kind, addr.Short())
	}
	return nil
}

func updatedOrMissing(res rowsResult, kind string, addr address.Address) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound(kind, addr)
	}
	return nil
}
