package currency

import (
	"errors"
	"math"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	c, err := Parse("SUI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Code != SUI {
		t.Errorf("expected code=SUI, got %s", c.Code)
	}
	if c.Decimals != 9 {
		t.Errorf("expected decimals=9, got %d", c.Decimals)
	}
}

func TestParse_InvalidFormat(t *testing.T) {
	tests := []string{
		"",
		"sui",
		"S",
		"1USD",
		"US-DC",
		"TOOLONGCODE1",
	}
	for _, code := range tests {
		_, err := Parse(code)
		if !errors.Is(err, ErrInvalidCode) {
			t.Errorf("expected ErrInvalidCode for %q, got %v", code, err)
		}
	}
}

func TestParse_Unsupported(t *testing.T) {
	_, err := Parse("DOGE")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestParse_AllSupported(t *testing.T) {
	supported := Supported()
	if len(supported) != 4 || supported[0].Code != ETH || supported[3].Code != USDT {
		t.Fatalf("expected ETH..USDT in code order, got %+v", supported)
	}
	for _, want := range supported {
		c, err := Parse(want.Code)
		if err != nil {
			t.Errorf("unexpected error for %s: %v", want.Code, err)
		}
		if c != want {
			t.Errorf("expected %+v, got %+v", want, c)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		code   string
		amount uint64
		want   string
	}{
		{SUI, 1_500_000_000, "1.500000000"},
		{SUI, 0, "0.000000000"},
		{USDC, 100, "0.000100"},
		{USDC, 12_340_000, "12.340000"},
	}
	for _, tt := range tests {
		c, _ := Parse(tt.code)
		if got := c.Format(tt.amount); got != tt.want {
			t.Errorf("Format(%s, %d) = %s, want %s", tt.code, tt.amount, got, tt.want)
		}
	}
}

func TestParseAmount_RoundTrip(t *testing.T) {
	c, _ := Parse(USDC)
	units, err := c.ParseAmount("12.34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units != 12_340_000 {
		t.Errorf("expected 12340000, got %d", units)
	}
	if c.Format(units) != "12.340000" {
		t.Errorf("unexpected format %s", c.Format(units))
	}
}

func TestParseAmount_Rejects(t *testing.T) {
	c, _ := Parse(USDC)
	tests := []struct {
		in   string
		want error
	}{
		{"abc", ErrInvalidAmount},
		{"-1", ErrInvalidAmount},
		{"0.0000001", ErrInvalidAmount}, // finer than 6 decimals
		{"99999999999999999999", ErrAmountTooLarge},
	}
	for _, tt := range tests {
		_, err := c.ParseAmount(tt.in)
		if !errors.Is(err, tt.want) {
			t.Errorf("ParseAmount(%q): expected %v, got %v", tt.in, tt.want, err)
		}
	}
}

func TestParseAmount_MaxUint64(t *testing.T) {
	c := Currency{Code: "RAW", Decimals: 0}
	units, err := c.ParseAmount("18446744073709551615")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units != math.MaxUint64 {
		t.Errorf("expected max uint64, got %d", units)
	}
}
