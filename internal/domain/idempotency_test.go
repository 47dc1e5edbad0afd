package domain

import "testing"

func TestDeriveKey(t *testing.T) {
	cases := []struct {
		name   string
		base   string
		suffix string
		want   string
	}{
		{"empty base", "", SuffixWithdraw, ""},
		{"blank base", "   ", SuffixWithdraw, ""},
		{"tabbed base", "\t\n", SuffixClose, ""},
		{"withdraw", "ABC", SuffixWithdraw, "ABC:WD"},
		{"compensate", "ABC", SuffixCompensate, "ABC:CP"},
		{"close", "ABC", SuffixClose, "ABC:CLOSE"},
		{"empty suffix", "ABC", "", "ABC"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DeriveKey(c.base, c.suffix); got != c.want {
				t.Fatalf("DeriveKey(%q, %q) = %q; want %q", c.base, c.suffix, got, c.want)
			}
		})
	}
}

func TestDeriveKey_StepsAreDistinct(t *testing.T) {
	base := "req-42"
	wd := DeriveKey(base, SuffixWithdraw)
	cp := DeriveKey(base, SuffixCompensate)
	cl := DeriveKey(base, SuffixClose)
	if wd == cp || wd == cl || cp == cl {
		t.Fatalf("per-step keys must be distinct: %q %q %q", wd, cp, cl)
	}
}
