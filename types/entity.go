// Package types provides the value types shared across the loyalty ledger.
package types

import "time"

// Entity carries bookkeeping timestamps for mutable records. Domain
// timestamps (payment time, activation date) live on the records themselves
// as unix seconds; Entity tracks when the stored row last changed.
type Entity struct {
	CreatedAt time.Time `json:"created_at" bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `json:"updated_at" bun:"updated_at,notnull,default:current_timestamp"`
}

// NewEntity creates an Entity stamped with t.
func NewEntity(t time.Time) Entity {
	t = t.UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Touch sets UpdatedAt to t.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t.UTC()
}
