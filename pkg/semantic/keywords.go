package semantic

import "github.com/cuemby/noundb/pkg/nountype"

// keywordEntry is one row of the bootstrap keyword table: a term that,
// on exact or near-match, votes for a noun type and category.
type keywordEntry struct {
	Keyword        string
	Type           nountype.Type
	Category       string
	BaseConfidence float64
}

// bootstrapKeywords seeds the semantic index. It is intentionally small
// and illustrative rather than exhaustive; Index has no method for adding
// keywords beyond this table.
var bootstrapKeywords = []keywordEntry{
	{"ceo", nountype.Person, "role", 0.7},
	{"founder", nountype.Person, "role", 0.7},
	{"employee", nountype.Person, "role", 0.6},
	{"engineer", nountype.Person, "role", 0.6},
	{"doctor", nountype.Person, "role", 0.6},

	{"company", nountype.Organization, "entity", 0.7},
	{"corporation", nountype.Organization, "entity", 0.7},
	{"nonprofit", nountype.Organization, "entity", 0.6},
	{"agency", nountype.Organization, "entity", 0.6},
	{"university", nountype.Organization, "entity", 0.6},

	{"city", nountype.Location, "place", 0.7},
	{"country", nountype.Location, "place", 0.7},
	{"office", nountype.Location, "place", 0.5},
	{"headquarters", nountype.Location, "place", 0.6},
	{"address", nountype.Location, "place", 0.5},

	{"meeting", nountype.Event, "occurrence", 0.6},
	{"conference", nountype.Event, "occurrence", 0.6},
	{"launch", nountype.Event, "occurrence", 0.5},
	{"anniversary", nountype.Event, "occurrence", 0.5},

	{"contract", nountype.Document, "record", 0.6},
	{"report", nountype.Document, "record", 0.6},
	{"invoice", nountype.Document, "record", 0.6},
	{"memo", nountype.Document, "record", 0.5},

	{"product", nountype.Product, "offering", 0.6},
	{"release", nountype.Product, "offering", 0.5},
	{"sku", nountype.Product, "offering", 0.6},

	{"project", nountype.Project, "initiative", 0.6},
	{"initiative", nountype.Project, "initiative", 0.6},
	{"roadmap", nountype.Project, "initiative", 0.5},

	{"task", nountype.Task, "unit-of-work", 0.6},
	{"ticket", nountype.Task, "unit-of-work", 0.6},
	{"todo", nountype.Task, "unit-of-work", 0.5},
}
