package param

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestDerive(t *testing.T) {
	midnight := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	afternoon := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  DataType
	}{
		{"string", "hello", NVarChar},
		{"bool", true, Bit},
		{"int", 42, Int},
		{"int64", int64(42), Int},
		{"uint", uint(42), Int},
		{"float", 0.5, Decimal},
		{"decimal", decimal.NewFromFloat(1.25), Decimal},
		{"midnight is a date", midnight, Date},
		{"time of day is a datetime", afternoon, DateTime},
		{"unknown type falls back to text", struct{}{}, NVarChar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.value); got != tt.want {
				t.Errorf("Derive(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParam_Valid(t *testing.T) {
	if !New("QuoteNumber", "100").Valid() {
		t.Error("named parameter reported invalid")
	}
	if New("", "100").Valid() {
		t.Error("unnamed parameter reported valid")
	}
}

func TestAnyInvalid(t *testing.T) {
	if AnyInvalid() {
		t.Error("AnyInvalid() with no params = true, want false")
	}
	if AnyInvalid(New("a", 1), New("b", 2)) {
		t.Error("AnyInvalid() with valid params = true, want false")
	}
	if !AnyInvalid(New("a", 1), New("", 2)) {
		t.Error("AnyInvalid() with unnamed param = false, want true")
	}
}

func TestFromMap(t *testing.T) {
	params := FromMap(map[string]any{
		"Multiplier":  0.5,
		"QuoteNumber": "100",
	})

	want := []Param{
		{Name: "Multiplier", Value: 0.5, Type: Decimal},
		{Name: "QuoteNumber", Value: "100", Type: NVarChar},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("FromMap() mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := Serialize(); got != "" {
			t.Errorf("Serialize() = %q, want empty", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := Serialize(New("x", 1), New("y", "two"))
		b := Serialize(New("y", "two"), New("x", 1))
		if a != b {
			t.Errorf("Serialize() order-dependent: %q vs %q", a, b)
		}
	})

	t.Run("content", func(t *testing.T) {
		got := Serialize(New("QuoteNumber", "100"))
		want := `{"QuoteNumber":"100"}`
		if got != want {
			t.Errorf("Serialize() = %q, want %q", got, want)
		}
	})
}

func TestParam_Arg(t *testing.T) {
	arg := New("Multiplier", decimal.NewFromFloat(0.5)).Arg()
	if arg.Name != "Multiplier" {
		t.Errorf("Arg().Name = %q, want Multiplier", arg.Name)
	}
	if arg.Value != "0.5" {
		t.Errorf("Arg().Value = %v, want %q", arg.Value, "0.5")
	}
}
