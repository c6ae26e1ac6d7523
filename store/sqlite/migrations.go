package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the loyalty store (SQLite).
var Migrations = migrate.NewGroup("loyalty")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_loyalty_ledger_state",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS loyalty_ledger_state (
    address               TEXT PRIMARY KEY,
    authority             TEXT NOT NULL,
    total_subscriptions   TEXT NOT NULL DEFAULT '00000000000000000000',
    total_payments        TEXT NOT NULL DEFAULT '00000000000000000000',
    total_cashback_minted TEXT NOT NULL DEFAULT '00000000000000000000',
    created_at            TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at            TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS loyalty_ledger_state`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_loyalty_payments",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS loyalty_payments (
    address         TEXT PRIMARY KEY,
    user_address    TEXT NOT NULL,
    sequence        TEXT NOT NULL,
    subscription_id TEXT NOT NULL,
    amount          TEXT NOT NULL,
    native_amount   TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'completed',
    timestamp       INTEGER NOT NULL,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loyalty_payments_user ON loyalty_payments (user_address, sequence);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS loyalty_payments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_loyalty_subscriptions",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS loyalty_subscriptions (
    address           TEXT PRIMARY KEY,
    user_address      TEXT NOT NULL,
    subscription_id   TEXT NOT NULL,
    amount            TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'active',
    activation_date   INTEGER NOT NULL,
    expiration_date   INTEGER NOT NULL,
    cancellation_date INTEGER,
    created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loyalty_subscriptions_user ON loyalty_subscriptions (user_address, activation_date);
CREATE INDEX IF NOT EXISTS idx_loyalty_subscriptions_due ON loyalty_subscriptions (status, expiration_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS loyalty_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_loyalty_redemptions",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS loyalty_redemptions (
    address      TEXT PRIMARY KEY,
    user_address TEXT NOT NULL,
    amount       TEXT NOT NULL,
    timestamp    INTEGER NOT NULL,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loyalty_redemptions_user ON loyalty_redemptions (user_address, timestamp);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS loyalty_redemptions`)
				return err
			},
		},
	)
}
