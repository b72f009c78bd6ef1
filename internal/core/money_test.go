package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"1500", 150000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:       "0.00",
		1:       "0.01",
		150000:  "1500.00",
		-2550:   "-25.50",
		4964600: "49646.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int64
		want    int64
		wantErr bool
	}{
		{"small", 150, 250, 400, false},
		{"signed", -500, 200, -300, false},
		{"up to max", math.MaxInt64 - 1, 1, math.MaxInt64, false},
		{"past max", math.MaxInt64, 1, 0, true},
		{"past min", math.MinInt64, -1, 0, true},
		{"hundred and two at the ceiling", maxCents * 100, maxCents * 2, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Money{Cents: tt.a}.Add(Money{Cents: tt.b})
			if tt.wantErr {
				if !errors.Is(err, ErrAmountOverflow) || !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("err = %v, want ErrAmountOverflow", err)
				}
				return
			}
			if err != nil || got.Cents != tt.want {
				t.Fatalf("Add = %d (err=%v), want %d", got.Cents, err, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 100000}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":100000}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	var m Money
	if err := json.Unmarshal([]byte("25000"), &m); err != nil || m.Cents != 25000 {
		t.Fatalf("unmarshal got %v (err=%v)", m, err)
	}
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected error for string amount")
	}
}
