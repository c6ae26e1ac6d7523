package loyalty

import (
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/id"
)

// ID identifies events and value-transfer receipts.
type ID = id.ID

// Address is the derived identity of a record or an account.
type Address = address.Address

// Account derives an account address from a name.
var Account = address.Account
