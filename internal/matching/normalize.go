// Package matching resolves Salesforce accounts to cached Zendesk
// organizations. The two systems share no primary key for most records, so
// resolution is a cascade of name-based heuristics over an index built from
// the cached organization set.
package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	punctReplacer = strings.NewReplacer(".", "", ",", "", "'", "", `"`, "")

	// Legal-entity suffix must follow whitespace so a name that IS a suffix
	// ("Co") survives normalization.
	legalSuffixRe = regexp.MustCompile(`(?i)\s+(inc|llc|corp|corporation|company|co|ltd|limited|group|holdings|platforms)\.?$`)

	domainTokenRe = regexp.MustCompile(`(?i)^([a-z0-9][a-z0-9-]*)\.(com|org|net|io|co|edu|gov)$`)

	// NFD-decompose, drop combining marks, recompose.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize canonicalizes a display name for matching: lower-case, strip
// diacritics, strip punctuation, strip a trailing legal-entity suffix,
// collapse whitespace. Idempotent; empty or whitespace-only input yields "".
func Normalize(name string) string {
	s := strings.ToLower(name)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = punctReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	// Strip until stable so stacked suffixes ("X Group Holdings") normalize
	// the same whether done in one pass or two.
	for {
		stripped := legalSuffixRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	return strings.TrimSpace(s)
}

// ExtractDomainToken returns the label of a bare-domain name ("acme.com" ->
// "acme"), or "" when the input is not shaped like label.tld. Some Salesforce
// account names are just the customer's website.
func ExtractDomainToken(name string) string {
	m := domainTokenRe.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}
