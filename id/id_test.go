package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/loyalty/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"EventID", id.NewEventID, "evt_"},
		{"ReceiptID", id.NewReceiptID, "rcpt_"},
		{"AuditID", id.NewAuditID, "aud_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"EventID", id.NewEventID, id.ParseEventID},
		{"ReceiptID", id.NewReceiptID, id.ParseReceiptID},
		{"AuditID", id.NewAuditID, id.ParseAuditID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseEventID(id.NewReceiptID().String()); err == nil {
		t.Error("ParseEventID accepted a receipt ID")
	}
	if _, err := id.ParseReceiptID(id.NewEventID().String()); err == nil {
		t.Error("ParseReceiptID accepted an event ID")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero value should be nil")
	}
	if i.String() != "" {
		t.Errorf("nil String() = %q", i.String())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("nil Value() = %v, %v", v, err)
	}
}

func TestScan(t *testing.T) {
	original := id.NewEventID()

	var scanned id.ID
	if err := scanned.Scan(original.String()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("got %q, want %q", scanned, original)
	}

	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !scanned.IsNil() {
		t.Error("scan nil should produce Nil")
	}

	if err := scanned.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
