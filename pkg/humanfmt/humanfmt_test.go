package humanfmt

import (
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.50K"},
		{2_340_000, "2.34M"},
		{7_100_000_000, "7.10B"},
		{-5, "-5"},
	}
	for _, c := range cases {
		if got := Count(c.n); got != c.want {
			t.Errorf("Count(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{1500 * time.Millisecond, "1.50s"},
		{250 * time.Microsecond, "250.0µs"},
	}
	for _, c := range cases {
		if got := Duration(c.d); got != c.want {
			t.Errorf("Duration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestRate(t *testing.T) {
	if got := Rate(1000, time.Second); got != "1.00K/s" {
		t.Errorf("Rate = %q", got)
	}
	if got := Rate(100, 0); got != "∞" {
		t.Errorf("Rate with zero duration = %q", got)
	}
}
