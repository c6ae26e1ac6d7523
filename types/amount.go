package types

import (
	"errors"
	"math/bits"
	"strconv"
)

// ErrOverflow is returned when an Amount operation leaves the uint64 domain.
var ErrOverflow = errors.New("types: arithmetic overflow")

// CashbackPercent is the share of a subscription fee returned as cashback.
const CashbackPercent = 10

// Amount is a non-negative quantity in an asset's smallest unit.
// All arithmetic is integer-only and checked; nothing wraps.
type Amount uint64

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return Amount(sum), nil
}

// Sub returns a-b or ErrOverflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return Amount(diff), nil
}

// Mul returns a*n or ErrOverflow.
func (a Amount) Mul(n uint64) (Amount, error) {
	hi, lo := bits.Mul64(uint64(a), n)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return Amount(lo), nil
}

// Percent returns floor(a * pct / 100). The multiplication is checked before
// dividing, so amounts whose product exceeds uint64 fail with ErrOverflow
// rather than being silently truncated.
func (a Amount) Percent(pct uint64) (Amount, error) {
	scaled, err := a.Mul(pct)
	if err != nil {
		return 0, err
	}
	return scaled / 100, nil
}

// Cashback returns the cashback credited for a subscription fee.
func Cashback(fee Amount) (Amount, error) {
	return fee.Percent(CashbackPercent)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// Uint64 returns the raw value.
func (a Amount) Uint64() uint64 { return uint64(a) }

// String renders the amount in base units.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Sum adds all values, failing on the first overflow.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
