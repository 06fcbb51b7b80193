package domain

import "testing"

func TestIsSupportedPair(t *testing.T) {
	cases := []struct {
		pair string
		want bool
	}{
		{"EURUSD", true},
		{"eurusd", true},
		{"GbpJpy", true},
		{"EUR/USD", false},
		{"BTCUSD", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsSupportedPair(tc.pair); got != tc.want {
			t.Errorf("IsSupportedPair(%q) = %v, want %v", tc.pair, got, tc.want)
		}
	}
}

func TestIsValidPriceFormat(t *testing.T) {
	cases := []struct {
		price string
		want  bool
	}{
		{"1.2000", true},
		{"1", true},
		{"0.12345", true},
		{"1.123456", false},
		{"1.", false},
		{".5", false},
		{"-1.2", false},
		{"1,20", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidPriceFormat(tc.price); got != tc.want {
			t.Errorf("IsValidPriceFormat(%q) = %v, want %v", tc.price, got, tc.want)
		}
	}
}
