// Package address derives the deterministic storage addresses of loyalty
// records.
//
// An address is the blake3 digest of a record kind and the record's logical
// key fields. The same (kind, seeds) pair always yields the same address, so
// any record can be located again from its logical key without a secondary
// index. Account identities (users, authorities) share the same 32-byte
// representation.
package address

import (
	"bytes"
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// Size is the byte length of an Address.
const Size = 32

// domain separates loyalty addresses from any other blake3 digests.
const domain = "loyalty/address/v1"

// Kind tags the record type encoded in a derived address.
type Kind string

// Record kinds.
const (
	KindLedgerState  Kind = "ledger_state"
	KindPayment      Kind = "payment"
	KindSubscription Kind = "subscription"
	KindRedemption   Kind = "redemption"
	KindAccount      Kind = "account"
)

// Address is a 32-byte record or account identity.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Address [Size]byte

// Zero is the zero-value address. It never identifies a real record.
var Zero Address

// Derive computes the address for kind and the ordered seeds. Each component
// is length-prefixed so that ("ab","c") and ("a","bc") never collide.
func Derive(kind Kind, seeds ...[]byte) Address {
	var buf bytes.Buffer
	writeDelimited(&buf, []byte(domain))
	writeDelimited(&buf, []byte(kind))
	for _, seed := range seeds {
		writeDelimited(&buf, seed)
	}
	return Address(blake3.Sum256(buf.Bytes()))
}

func writeDelimited(buf *bytes.Buffer, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])
	buf.Write(data)
}

// LedgerState returns the address of the singleton ledger state record.
func LedgerState() Address {
	return Derive(KindLedgerState)
}

// Payment returns the address of the payment made by user with the given
// ledger-wide sequence number.
func Payment(user Address, seq uint64) Address {
	return Derive(KindPayment, user[:], le64(seq))
}

// Subscription returns the address of user's subscription subscriptionID.
func Subscription(user Address, subscriptionID uint64) Address {
	return Derive(KindSubscription, user[:], le64(subscriptionID))
}

// Redemption returns the address of the redemption user made at the given
// unix timestamp (seconds).
func Redemption(user Address, timestamp int64) Address {
	return Derive(KindRedemption, user[:], le64(uint64(timestamp)))
}

// Account derives an account identity from an arbitrary name. Useful for
// fixtures and for mapping external principals onto ledger identities.
func Account(name string) Address {
	return Derive(KindAccount, []byte(name))
}

func le64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// Parse decodes a hex address, with or without a 0x prefix.
func Parse(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if len(trimmed) != Size*2 {
		return Zero, fmt.Errorf("address: parse %q: want %d hex chars, got %d", s, Size*2, len(trimmed))
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Zero, fmt.Errorf("address: parse %q: %w", s, err)
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the lowercase hex encoding.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns an abbreviated form for log lines.
func (a Address) Short() string {
	s := a.String()
	return s[:8] + ".." + s[len(s)-4:]
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, a[:])
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Zero
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == Size {
			copy(a[:], v)
			return nil
		}
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("address: cannot scan %T into Address", src)
	}
}
