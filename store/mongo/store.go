package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/ledgerstate"
	"github.com/xraph/loyalty/payment"
	"github.com/xraph/loyalty/redemption"
	loyaltystore "github.com/xraph/loyalty/store"
	"github.com/xraph/loyalty/subscription"
)

// Collection name constants.
const (
	colState         = "loyalty_ledger_state"
	colPayments      = "loyalty_payments"
	colSubscriptions = "loyalty_subscriptions"
	colRedemptions   = "loyalty_redemptions"
)

// compile-time interface check
var _ loyaltystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all loyalty collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("loyalty/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(toStateModel(st)).Exec(ctx)
	if err != nil {
		return insertErr("ledger state", st.Address, err)
	}
	return nil
}

func (s *Store) GetState(ctx context.Context, addr address.Address) (*ledgerstate.State, error) {
	var m stateModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, notFound("ledger state", addr)
		}
		return nil, fmt.Errorf("loyalty/mongo: get ledger state: %w", err)
	}
	return fromStateModel(&m)
}

func (s *Store) UpdateState(ctx context.Context, st *ledgerstate.State, prevPayments uint64) error {
	m := toStateModel(st)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Address, "total_payments": formatUint(prevPayments)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("loyalty/mongo: update ledger state: %w", err)
	}
	if res.MatchedCount() == 0 {
		cur, err := s.GetState(ctx, st.Address)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: ledger state %s moved to %d payments", loyalty.ErrConflict, st.Address.Short(), cur.TotalPayments)
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.mdb.NewInsert(toPaymentModel(p)).Exec(ctx)
	if err != nil {
		return insertErr("payment", p.Address, err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, addr address.Address) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, notFound("payment", addr)
		}
		return nil, fmt.Errorf("loyalty/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) ListPayments(ctx context.Context, user address.Address, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"user_address": user.String()}).
		Sort(bson.D{{Key: "sequence", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("loyalty/mongo: list payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) DeletePayment(ctx context.Context, addr address.Address) error {
	res, err := s.mdb.NewDelete((*paymentModel)(nil)).
		Filter(bson.M{"_id": addr.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("loyalty/mongo: delete payment: %w", err)
	}
	if res.DeletedCount() == 0 {
		return notFound("payment", addr)
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.mdb.NewInsert(toSubscriptionModel(sub)).Exec(ctx)
	if err != nil {
		return insertErr("subscription", sub.Address, err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, addr address.Address) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, notFound("subscription", addr)
		}
		return nil, fmt.Errorf("loyalty/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) ListSubscriptions(ctx context.Context, user address.Address, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{"user_address": user.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "activation_date", Value: 1}, {Key: "subscription_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("loyalty/mongo: list subscriptions: %w", err)
	}
	return fromSubscriptionModels(models)
}

func (s *Store) ListDueSubscriptions(ctx context.Context, asOf int64, limit int) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":          string(subscription.StatusActive),
			"expiration_date": bson.M{"$lte": asOf},
		}).
		Sort(bson.D{{Key: "expiration_date", Value: 1}})

	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("loyalty/mongo: list due subscriptions: %w", err)
	}
	return fromSubscriptionModels(models)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Address}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("loyalty/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return notFound("subscription", sub.Address)
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, addr address.Address) error {
	res, err := s.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": addr.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("loyalty/mongo: delete subscription: %w", err)
	}
	if res.DeletedCount() == 0 {
		return notFound("subscription", addr)
	}
	return nil
}

func fromSubscriptionModels(models []subscriptionModel) ([]*subscription.Subscription, error) {
	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ==================== Redemption Store ====================

func (s *Store) CreateRedemption(ctx context.Context, r *redemption.Redemption) error {
	_, err := s.mdb.NewInsert(toRedemptionModel(r)).Exec(ctx)
	if err != nil {
		return insertErr("redemption", r.Address, err)
	}
	return nil
}

func (s *Store) GetRedemption(ctx context.Context, addr address.Address) (*redemption.Redemption, error) {
	var m redemptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, notFound("redemption", addr)
		}
		return nil, fmt.Errorf("loyalty/mongo: get redemption: %w", err)
	}
	return fromRedemptionModel(&m)
}

func (s *Store) ListRedemptions(ctx context.Context, user address.Address, opts redemption.ListOpts) ([]*redemption.Redemption, error) {
	var models []redemptionModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"user_address": user.String()}).
		Sort(bson.D{{Key: "timestamp", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("loyalty/mongo: list redemptions: %w", err)
	}

	result := make([]*redemption.Redemption, len(models))
	for i := range models {
		r, err := fromRedemptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) DeleteRedemption(ctx context.Context, addr address.Address) error {
	res, err := s.mdb.NewDelete((*redemptionModel)(nil)).
		Filter(bson.M{"_id": addr.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("loyalty/mongo: delete redemption: %w", err)
	}
	if res.DeletedCount() == 0 {
		return notFound("redemption", addr)
	}
	return nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func notFound(kind string, addr address.Address) error {
	return fmt.Errorf("%w: %s %s", loyalty.ErrNotFound, kind, addr.Short())
}

// insertErr maps a duplicate _id to ErrAlreadyExists.
func insertErr(kind string, addr address.Address, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s %s", loyalty.ErrAlreadyExists, kind, addr.Short())
	}
	return fmt.Errorf("loyalty/mongo: create %s: %w", kind, err)
}

// migrationIndexes returns the index definitions for all loyalty collections.
// Documents are keyed by their derived address in _id, which is unique by
// default.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colState: nil,
		colPayments: {
			{
				Keys:    bson.D{{Key: "user_address", Value: 1}, {Key: "sequence", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colSubscriptions: {
			{
				Keys:    bson.D{{Key: "user_address", Value: 1}, {Key: "subscription_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_address", Value: 1}, {Key: "activation_date", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiration_date", Value: 1}}},
		},
		colRedemptions: {
			{
				Keys:    bson.D{{Key: "user_address", Value: 1}, {Key: "timestamp", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
