package loyalty

import "github.com/xraph/loyalty/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// CashbackPercent is the share of a subscription fee minted as cashback.
const CashbackPercent = types.CashbackPercent

// Re-export Amount helpers
var (
	Cashback  = types.Cashback
	Sum       = types.Sum
	NewEntity = types.NewEntity
)
