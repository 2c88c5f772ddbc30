package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Inc", "acme"},
		{"ACME, Inc.", "acme"},
		{"Acme Corporation", "acme"},
		{"Café Corporation", "cafe"},
		{"T. Rowe Price Group", "t rowe price"},
		{"Initech  LLC", "initech"},
		{"Acme Group Holdings", "acme"},
		{"O'Reilly Media", "oreilly media"},
		{`"Quoted" Name Co.`, "quoted name"},
		{"", ""},
		{"   ", ""},
		// A name that is only a suffix keeps it: stripping requires a
		// preceding word.
		{"Co", "co"},
		{"Company", "company"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Acme Inc", "ACME, Inc.", "Café Corporation", "T. Rowe Price Group",
		"Acme Group Holdings", "  spaced   out  ", "", "Co", "Ünïcödé Ltd.",
		"Federal Bureau Of Investigation",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestExtractDomainToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"acme.com", "acme"},
		{"Accenture.COM", "accenture"},
		{"my-shop.io", "my-shop"},
		{"troweprice.com", "troweprice"},
		{"acme.xyz", ""},
		{"sub.acme.com", ""},
		{"foo bar.com", ""},
		{"Acme Inc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractDomainToken(tc.in), "ExtractDomainToken(%q)", tc.in)
	}
}
