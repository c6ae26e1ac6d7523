package address_test

import (
	"encoding/json"
	"testing"

	"github.com/xraph/loyalty/address"
)

func TestDeriveDeterministic(t *testing.T) {
	user := address.Account("alice")

	tests := []struct {
		name string
		fn   func() address.Address
	}{
		{"LedgerState", address.LedgerState},
		{"Payment", func() address.Address { return address.Payment(user, 7) }},
		{"Subscription", func() address.Address { return address.Subscription(user, 42) }},
		{"Redemption", func() address.Address { return address.Redemption(user, 1_700_000_000) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.fn(), tt.fn()
			if a != b {
				t.Fatalf("derivation not stable: %s != %s", a, b)
			}
			if a.IsZero() {
				t.Fatal("derived zero address")
			}
		})
	}
}

func TestDeriveDistinguishesFields(t *testing.T) {
	alice := address.Account("alice")
	bob := address.Account("bob")

	seen := map[address.Address]string{}
	cases := map[string]address.Address{
		"payment alice 0":      address.Payment(alice, 0),
		"payment alice 1":      address.Payment(alice, 1),
		"payment bob 0":        address.Payment(bob, 0),
		"subscription alice 0": address.Subscription(alice, 0),
		"subscription alice 1": address.Subscription(alice, 1),
		"subscription bob 1":   address.Subscription(bob, 1),
		"redemption alice 0":   address.Redemption(alice, 0),
		"redemption alice 1":   address.Redemption(alice, 1),
		"ledger state":         address.LedgerState(),
	}
	for name, a := range cases {
		if other, dup := seen[a]; dup {
			t.Fatalf("%q collides with %q", name, other)
		}
		seen[a] = name
	}
}

func TestDeriveLengthPrefixed(t *testing.T) {
	a := address.Derive("kind", []byte("ab"), []byte("c"))
	b := address.Derive("kind", []byte("a"), []byte("bc"))
	if a == b {
		t.Fatal("seed boundaries must affect the derived address")
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := address.Account("carol")

	for _, s := range []string{original.String(), "0x" + original.String()} {
		parsed, err := address.Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if parsed != original {
			t.Errorf("round-trip mismatch: %s != %s", parsed, original)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "abc", "zz" + address.Account("x").String()[2:]} {
		if _, err := address.Parse(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		User address.Address `json:"user"`
	}
	in := wrapper{User: address.Account("dave")}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.User != in.User {
		t.Errorf("got %s, want %s", out.User, in.User)
	}
}

func TestScan(t *testing.T) {
	want := address.Account("erin")

	var fromString address.Address
	if err := fromString.Scan(want.String()); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if fromString != want {
		t.Errorf("scan string: got %s", fromString)
	}

	var fromBytes address.Address
	if err := fromBytes.Scan(want.Bytes()); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if fromBytes != want {
		t.Errorf("scan bytes: got %s", fromBytes)
	}

	var fromNil address.Address = want
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !fromNil.IsZero() {
		t.Error("scan nil should reset to zero")
	}
}
