package domain

import "testing"

func TestDedupKeyNormalizesNameAndHost(t *testing.T) {
	cases := []struct {
		name    string
		website string
		want    string
	}{
		{"Acme  Plumbing ", "https://www.acme-plumbing.co.uk/contact", "acme plumbing|acme-plumbing.co.uk"},
		{"ACME Plumbing", "acme-plumbing.co.uk", "acme plumbing|acme-plumbing.co.uk"},
		{"Acme Plumbing", "", "acme plumbing"},
		{"Acme Plumbing", "   ", "acme plumbing"},
		{"Beta Ltd", "HTTP://WWW.BETA.COM", "beta ltd|beta.com"},
	}

	for _, tc := range cases {
		if got := DedupKey(tc.name, tc.website); got != tc.want {
			t.Fatalf("DedupKey(%q, %q) = %q, want %q", tc.name, tc.website, got, tc.want)
		}
	}
}

func TestDedupKeyCollidesAcrossSchemes(t *testing.T) {
	a := DedupKey("Acme", "http://acme.com")
	b := DedupKey("acme", "https://www.acme.com/")
	if a != b {
		t.Fatalf("expected %q and %q to collide", a, b)
	}
}
