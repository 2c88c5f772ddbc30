package matching

import (
	"sort"
	"strings"

	"github.com/atlas-support/backend/internal/models"
)

// Strategy identifies which heuristic produced a match. Persisted with each
// assignment so match quality can be audited per run.
type Strategy string

const (
	StrategyExternalID Strategy = "external_id"
	StrategyExact      Strategy = "exact"
	StrategyAcronym    Strategy = "acronym"
	StrategyAlias      Strategy = "alias"
	StrategyNormalized Strategy = "normalized"
	StrategyDomain     Strategy = "domain"
	StrategyFirstWord  Strategy = "first_word"
	StrategyKeyword    Strategy = "keyword"
	StrategyPartial    Strategy = "partial"
	StrategyNone       Strategy = "none"
)

// Strategies lists every strategy in cascade order, for reporting.
var Strategies = []Strategy{
	StrategyExternalID,
	StrategyExact,
	StrategyAcronym,
	StrategyAlias,
	StrategyNormalized,
	StrategyDomain,
	StrategyFirstWord,
	StrategyKeyword,
	StrategyPartial,
	StrategyNone,
}

var dashStripReplacer = strings.NewReplacer(".", "", "-", "", " ", "")

// Resolver matches one Salesforce account against an Index. The cascade is
// ordered from highest to lowest confidence; the first strategy that hits
// wins, and weaker strategies enforce minimum-length thresholds so short
// generic tokens cannot cause mass false matches.
type Resolver struct {
	idx      *Index
	aliases  map[string]string
	acronyms map[string]string
}

// NewResolver creates a resolver over a freshly built index using the
// built-in alias and acronym tables.
func NewResolver(idx *Index) *Resolver {
	return &Resolver{idx: idx, aliases: aliasTable, acronyms: acronymTable}
}

// Resolve returns the matched organization and the strategy that matched,
// or (nil, StrategyNone). An empty account name can only match by external
// id.
func (r *Resolver) Resolve(accountID, accountName string) (*models.Organization, Strategy) {
	// 1. External id, exact or 15-char prefix.
	if accountID != "" {
		if org, ok := r.idx.byExternalID[accountID]; ok {
			return org, StrategyExternalID
		}
		if len(accountID) >= externalIDPrefixLen {
			if org, ok := r.idx.byExternalID[accountID[:externalIDPrefixLen]]; ok {
				return org, StrategyExternalID
			}
		}
	}

	name := strings.TrimSpace(accountName)
	if name == "" {
		return nil, StrategyNone
	}

	// 2. Exact raw name.
	if org, ok := r.idx.byExact[strings.ToLower(name)]; ok {
		return org, StrategyExact
	}

	normalized := Normalize(name)
	if normalized == "" {
		return nil, StrategyNone
	}

	// 3. Acronym expansion.
	if expansion, ok := r.acronyms[normalized]; ok {
		if org, ok := r.idx.byNormalized[Normalize(expansion)]; ok {
			return org, StrategyAcronym
		}
	}

	// 4. Hand-curated alias.
	if alias, ok := r.aliases[normalized]; ok {
		target := Normalize(alias)
		if org, ok := r.idx.byDomain[target]; ok {
			return org, StrategyAlias
		}
		if org, ok := r.idx.byNormalized[target]; ok {
			return org, StrategyAlias
		}
	}

	// 5. Normalized name.
	if org, ok := r.idx.byNormalized[normalized]; ok {
		return org, StrategyNormalized
	}

	// 6. Domain-derived name. Tries the normalized name, the name with all
	// separators squeezed out ("t rowe price" -> "troweprice"), and the
	// label of a bare-domain account name ("accenture.com" -> "accenture").
	domainTok := ExtractDomainToken(name)
	if org, ok := r.idx.byDomain[normalized]; ok {
		return org, StrategyDomain
	}
	if squeezed := dashStripReplacer.Replace(normalized); len(squeezed) >= 4 {
		if org, ok := r.idx.byDomain[squeezed]; ok {
			return org, StrategyDomain
		}
	}
	if domainTok != "" {
		if org, ok := r.idx.byDomain[domainTok]; ok {
			return org, StrategyDomain
		}
	}

	// 7. First significant word.
	words := strings.Fields(normalized)
	if len(words) > 0 && len(words[0]) >= 4 {
		if org, ok := r.idx.byFirstWord[words[0]]; ok {
			return org, StrategyFirstWord
		}
	}
	if len(domainTok) >= 4 {
		if org, ok := r.idx.byFirstWord[domainTok]; ok {
			return org, StrategyFirstWord
		}
	}

	// 8. Keyword, left to right.
	for _, w := range words {
		if len(w) < 5 {
			continue
		}
		if org, ok := r.idx.byKeyword[w]; ok {
			return org, StrategyKeyword
		}
	}

	// 9. Partial containment, last resort. Scans sorted keys so a run is
	// deterministic when several organization names overlap the account.
	if len(normalized) >= 4 {
		keys := make([]string, 0, len(r.idx.byExact))
		for k := range r.idx.byExact {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			candidate := Normalize(k)
			if len(candidate) < 4 {
				continue
			}
			if strings.Contains(candidate, normalized) || strings.Contains(normalized, candidate) {
				return r.idx.byExact[k], StrategyPartial
			}
		}
	}

	return nil, StrategyNone
}
