// Package verbtype defines the closed enumeration of verb (edge) types the
// engine accepts on Relate and the graph adjacency index records. This
// package is the single authority for the set: pkg/migration consults
// Deprecated to rewrite edges carrying a retired type during a schema
// migration instead of rejecting them outright.
package verbtype

// Type is one member of the closed verb-type enumeration.
type Type string

// All returns every currently registered verb type.
func All() []Type {
	out := make([]Type, 0, len(ordered))
	out = append(out, ordered...)
	return out
}

// Valid reports whether t is a member of the closed enumeration.
func Valid(t Type) bool {
	_, ok := index[t]
	return ok
}

// Deprecated maps a retired verb type string to its current replacement.
// pkg/migration ships a built-in migration that rewrites every verb
// carrying a deprecated type to its replacement.
var Deprecated = map[Type]Type{
	"WorksAt":     WorksWith,
	"EmployedBy":  WorksWith,
	"PartOf":      BelongsTo,
	"LocatedAt":   LocatedIn,
	"AuthoredBy":  CreatedBy,
	"AssignedTo":  AssignedToType,
	"RelatesTo":   RelatedTo,
	"DependsOn":   DependsOnType,
	"ReferencedBy": References,
}

// Detection method for a verb's evidence, per the edge's provenance.
type DetectionMethod string

const (
	DetectionNeural     DetectionMethod = "neural"
	DetectionPattern    DetectionMethod = "pattern"
	DetectionStructural DetectionMethod = "structural"
	DetectionExplicit   DetectionMethod = "explicit"
)

// Category names a group of verb types. No verb type is mapped to a
// Category in this package, and pkg/semantic does not filter by it.
type Category string

const (
	CategoryRelationship Category = "relationship"
	CategoryStructural   Category = "structural"
	CategoryTemporal     Category = "temporal"
	CategoryCommunication Category = "communication"
	CategoryOwnership    Category = "ownership"
	CategoryWorkflow     Category = "workflow"
	CategoryReference    Category = "reference"
)

const (
	WorksWith      Type = "WorksWith"
	WorksFor       Type = "WorksFor"
	Manages        Type = "Manages"
	ReportsTo      Type = "ReportsTo"
	CollaboratesWith Type = "CollaboratesWith"
	Knows          Type = "Knows"
	Mentors        Type = "Mentors"
	BelongsTo      Type = "BelongsTo"
	Contains       Type = "Contains"
	PartOfType     Type = "PartOfType"
	MemberOf       Type = "MemberOf"
	Owns           Type = "Owns"
	OwnedBy        Type = "OwnedBy"
	LocatedIn      Type = "LocatedIn"
	NearTo         Type = "NearTo"
	TravelsTo      Type = "TravelsTo"
	CreatedBy      Type = "CreatedBy"
	Created        Type = "Created"
	ModifiedBy     Type = "ModifiedBy"
	DeletedBy      Type = "DeletedBy"
	AssignedToType Type = "AssignedToType"
	Assigns        Type = "Assigns"
	RelatedTo      Type = "RelatedTo"
	SimilarTo      Type = "SimilarTo"
	DuplicateOf    Type = "DuplicateOf"
	DependsOnType  Type = "DependsOnType"
	BlockedBy      Type = "BlockedBy"
	Blocks         Type = "Blocks"
	References     Type = "References"
	ReferencedBy2  Type = "ReferencedBy2"
	Mentions       Type = "Mentions"
	MentionedIn    Type = "MentionedIn"
	Cites          Type = "Cites"
	CitedBy        Type = "CitedBy"
	AttachedTo     Type = "AttachedTo"
	HasAttachment  Type = "HasAttachment"
	RepliedTo      Type = "RepliedTo"
	HasReply       Type = "HasReply"
	SentTo         Type = "SentTo"
	ReceivedFrom   Type = "ReceivedFrom"
	CcTo           Type = "CcTo"
	ParticipatesIn Type = "ParticipatesIn"
	HasParticipant Type = "HasParticipant"
	Organizes      Type = "Organizes"
	OrganizedBy    Type = "OrganizedBy"
	Attends        Type = "Attends"
	Schedules      Type = "Schedules"
	Precedes       Type = "Precedes"
	Follows        Type = "Follows"
	Triggers       Type = "Triggers"
	TriggeredBy    Type = "TriggeredBy"
	Approves       Type = "Approves"
	ApprovedBy     Type = "ApprovedBy"
	Rejects        Type = "Rejects"
	RejectedBy     Type = "RejectedBy"
	Reviews        Type = "Reviews"
	ReviewedBy     Type = "ReviewedBy"
	Merges         Type = "Merges"
	MergedInto     Type = "MergedInto"
	Forks          Type = "Forks"
	ForkedFrom     Type = "ForkedFrom"
	Tags           Type = "Tags"
	TaggedWith     Type = "TaggedWith"
	Categorizes    Type = "Categorizes"
	CategorizedAs  Type = "CategorizedAs"
	HasSkill       Type = "HasSkill"
	RequiresSkill  Type = "RequiresSkill"
	Implements     Type = "Implements"
	ImplementedBy  Type = "ImplementedBy"
	Deploys        Type = "Deploys"
	DeployedBy     Type = "DeployedBy"
	Monitors       Type = "Monitors"
	MonitoredBy    Type = "MonitoredBy"
	Alerts         Type = "Alerts"
	AlertedBy      Type = "AlertedBy"
	Resolves       Type = "Resolves"
	ResolvedBy     Type = "ResolvedBy"
	Causes         Type = "Causes"
	CausedBy       Type = "CausedBy"
	PaysFor        Type = "PaysFor"
	PaidBy         Type = "PaidBy"
	Invoices       Type = "Invoices"
	InvoicedTo     Type = "InvoicedTo"
	Transfers      Type = "Transfers"
	TransferredTo  Type = "TransferredTo"
	Holds          Type = "Holds"
	HeldBy         Type = "HeldBy"
)

var ordered = []Type{
	WorksWith, WorksFor, Manages, ReportsTo, CollaboratesWith, Knows,
	Mentors, BelongsTo, Contains, PartOfType, MemberOf, Owns, OwnedBy,
	LocatedIn, NearTo, TravelsTo, CreatedBy, Created, ModifiedBy,
	DeletedBy, AssignedToType, Assigns, RelatedTo, SimilarTo, DuplicateOf,
	DependsOnType, BlockedBy, Blocks, References, ReferencedBy2, Mentions,
	MentionedIn, Cites, CitedBy, AttachedTo, HasAttachment, RepliedTo,
	HasReply, SentTo, ReceivedFrom, CcTo, ParticipatesIn, HasParticipant,
	Organizes, OrganizedBy, Attends, Schedules, Precedes, Follows,
	Triggers, TriggeredBy, Approves, ApprovedBy, Rejects, RejectedBy,
	Reviews, ReviewedBy, Merges, MergedInto, Forks, ForkedFrom, Tags,
	TaggedWith, Categorizes, CategorizedAs, HasSkill, RequiresSkill,
	Implements, ImplementedBy, Deploys, DeployedBy, Monitors, MonitoredBy,
	Alerts, AlertedBy, Resolves, ResolvedBy, Causes, CausedBy, PaysFor,
	PaidBy, Invoices, InvoicedTo, Transfers, TransferredTo, Holds, HeldBy,
}

var index = func() map[Type]int {
	m := make(map[Type]int, len(ordered))
	for i, t := range ordered {
		m[t] = i
	}
	return m
}()
