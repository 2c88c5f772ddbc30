package matching

import (
	"strings"

	"github.com/atlas-support/backend/internal/models"
)

// externalIDPrefixLen is how many leading characters of a Salesforce id are
// significant: 15- and 18-character forms of the same id share the first 15.
const externalIDPrefixLen = 15

// Index is a set of lookup tables over the cached organization set, built
// fresh per sync run and never mutated afterwards. All tables are
// first-writer-wins: once a key maps to an organization, later collisions
// are ignored.
type Index struct {
	byExact      map[string]*models.Organization
	byNormalized map[string]*models.Organization
	byDomain     map[string]*models.Organization
	byFirstWord  map[string]*models.Organization
	byKeyword    map[string]*models.Organization
	byExternalID map[string]*models.Organization
}

// BuildIndex constructs the lookup tables from the full organization set.
// Organizations without a name enter no table.
func BuildIndex(orgs []*models.Organization) *Index {
	idx := &Index{
		byExact:      make(map[string]*models.Organization),
		byNormalized: make(map[string]*models.Organization),
		byDomain:     make(map[string]*models.Organization),
		byFirstWord:  make(map[string]*models.Organization),
		byKeyword:    make(map[string]*models.Organization),
		byExternalID: make(map[string]*models.Organization),
	}
	for _, org := range orgs {
		if org.SalesforceAccountID != "" {
			put(idx.byExternalID, org.SalesforceAccountID, org)
			if len(org.SalesforceAccountID) >= externalIDPrefixLen {
				put(idx.byExternalID, org.SalesforceAccountID[:externalIDPrefixLen], org)
			}
		}
		if org.Name == "" {
			continue
		}
		put(idx.byExact, strings.ToLower(org.Name), org)
		if org.SalesforceAccountName != "" {
			put(idx.byExact, strings.ToLower(org.SalesforceAccountName), org)
		}
		normalized := Normalize(org.Name)
		if normalized == "" {
			continue
		}
		put(idx.byNormalized, normalized, org)
		if tok := ExtractDomainToken(org.Name); tok != "" {
			put(idx.byDomain, tok, org)
		}
		words := strings.Fields(normalized)
		if len(words) > 0 && len(words[0]) >= 4 {
			put(idx.byFirstWord, words[0], org)
		}
		for _, w := range words {
			if len(w) >= 5 {
				put(idx.byKeyword, w, org)
			}
		}
	}
	return idx
}

func put(m map[string]*models.Organization, key string, org *models.Organization) {
	if _, ok := m[key]; !ok {
		m[key] = org
	}
}

// Size returns the number of distinct organizations that entered at least
// one name table. Used for run logging only.
func (idx *Index) Size() int {
	seen := make(map[int64]struct{}, len(idx.byExact))
	for _, org := range idx.byExact {
		seen[org.ID] = struct{}{}
	}
	return len(seen)
}
