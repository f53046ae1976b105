// Package nountype defines the closed enumeration of noun types the engine
// recognizes. A noun's type never changes silently: changing it is a
// delete-then-insert across HNSW partitions (see pkg/partition).
package nountype

// Type is one member of the closed noun-type enumeration.
type Type string

// All returns every registered noun type, in declaration order. The
// type-partitioned HNSW façade (pkg/partition) accepts any of these and
// opens a type's partition on its first Insert.
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

const (
	Person       Type = "Person"
	Organization Type = "Organization"
	Location     Type = "Location"
	Event        Type = "Event"
	Document     Type = "Document"
	Product      Type = "Product"
	Project      Type = "Project"
	Task         Type = "Task"
	Meeting      Type = "Meeting"
	Email        Type = "Email"
	Message      Type = "Message"
	Conversation Type = "Conversation"
	Thread       Type = "Thread"
	Note         Type = "Note"
	Comment      Type = "Comment"
	File         Type = "File"
	Image        Type = "Image"
	Video        Type = "Video"
	Audio        Type = "Audio"
	Contract     Type = "Contract"
	Invoice      Type = "Invoice"
	Payment      Type = "Payment"
	Account      Type = "Account"
	Transaction  Type = "Transaction"
	Asset        Type = "Asset"
	Issue        Type = "Issue"
	Ticket       Type = "Ticket"
	Bug          Type = "Bug"
	Feature      Type = "Feature"
	Release      Type = "Release"
	Repository   Type = "Repository"
	Commit       Type = "Commit"
	PullRequest  Type = "PullRequest"
	Deployment   Type = "Deployment"
	Service      Type = "Service"
	Metric       Type = "Metric"
	Alert        Type = "Alert"
	Incident     Type = "Incident"
	Workflow     Type = "Workflow"
	Tag          Type = "Tag"
	Category     Type = "Category"
	Skill        Type = "Skill"
	State        Type = "State" // internal: version snapshots (pkg/version) are stored as State nouns
)

var ordered = []Type{
	Person, Organization, Location, Event, Document, Product, Project, Task,
	Meeting, Email, Message, Conversation, Thread, Note, Comment, File,
	Image, Video, Audio, Contract, Invoice, Payment, Account, Transaction,
	Asset, Issue, Ticket, Bug, Feature, Release, Repository, Commit,
	PullRequest, Deployment, Service, Metric, Alert, Incident, Workflow,
	Tag, Category, Skill, State,
}

var index = func() map[Type]int {
	m := make(map[Type]int, len(ordered))
	for i, t := range ordered {
		m[t] = i
	}
	return m
}()
