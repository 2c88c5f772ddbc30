package matching

// Hand-curated corrections for accounts whose Salesforce name never matches
// the Zendesk organization through any automatic strategy. Keys and values
// are normalized names; the value is looked up in the domain table first,
// then the normalized table.
var aliasTable = map[string]string{
	"alphabet":                   "google",
	"meta":                       "facebook",
	"x corp":                     "twitter",
	"jpmc":                       "jpmorgan chase",
	"amazon web services":        "amazon",
	"ibm consulting":             "ibm",
	"accenture federal services": "accenture federal",
}

// Acronym expansions for accounts recorded under their short form. Keys are
// normalized account names; values are looked up in the normalized table.
var acronymTable = map[string]string{
	"fbi":  "federal bureau of investigation",
	"cia":  "central intelligence agency",
	"dhs":  "department of homeland security",
	"dod":  "department of defense",
	"hhs":  "department of health and human services",
	"gsa":  "general services administration",
	"usda": "united states department of agriculture",
	"nih":  "national institutes of health",
}
