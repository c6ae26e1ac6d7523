package sqlite

import (
	"math"
	"sort"
	"testing"

	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/subscription"
	"github.com/xraph/loyalty/types"
)

func TestPaddedUintSortsNumerically(t *testing.T) {
	values := []uint64{math.MaxUint64, 10, 9, 0, 1 << 63, 100}
	encoded := make([]string, len(values))
	for i, v := range values {
		encoded[i] = formatUint(v)
	}
	sort.Strings(encoded)

	want := []uint64{0, 9, 10, 100, 1 << 63, math.MaxUint64}
	for i, s := range encoded {
		got, err := parseUint("test", s)
		if err != nil {
			t.Fatal(err)
		}
		if got != want[i] {
			t.Errorf("position %d = %d, want %d", i, got, want[i])
		}
	}
}

func TestSubscriptionModelKeepsFullRange(t *testing.T) {
	user := address.Account("sqlite-user")
	sub := subscription.New(user, math.MaxUint64, types.Amount(math.MaxUint64), 1_700_000_000)

	got, err := fromSubscriptionModel(toSubscriptionModel(sub))
	if err != nil {
		t.Fatal(err)
	}
	if got.SubscriptionID != math.MaxUint64 || got.Amount != types.Amount(math.MaxUint64) {
		t.Errorf("lost precision: id=%d amount=%d", got.SubscriptionID, got.Amount)
	}
	if got.Address != sub.Address || got.User != user {
		t.Errorf("addresses changed: %s %s", got.Address, got.User)
	}
	if got.ExpirationDate != sub.ExpirationDate || got.Status != subscription.StatusActive {
		t.Errorf("period/status changed: %+v", got)
	}
}

func TestFromModelRejectsUnknownStatus(t *testing.T) {
	user := address.Account("sqlite-user")
	m := toSubscriptionModel(subscription.New(user, 1, 10, 0))
	m.Status = "paused"

	if _, err := fromSubscriptionModel(m); err == nil {
		t.Fatal("expected status validation error")
	}
}
