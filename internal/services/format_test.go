package services

import "testing"

func TestFormatYen(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{9350, "9,350"},
		{120000, "120,000"},
		{1234567, "1,234,567"},
		{-9350, "-9,350"},
	}
	for _, tt := range tests {
		if got := formatYen(tt.in); got != tt.want {
			t.Errorf("formatYen(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
