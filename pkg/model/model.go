// Package model defines the data types shared across the engine: nouns,
// verbs, vectors, and the metadata value algebra. Nothing in this package
// talks to storage; it is the shape every other package passes around.
package model

import (
	"strconv"
	"time"

	"github.com/cuemby/noundb/pkg/nountype"
	"github.com/cuemby/noundb/pkg/verbtype"
)

// Vector is a fixed-width embedding. Every HNSW partition fixes a
// dimension at open time; inserting or querying with a different length
// fails with engerr.DimensionMismatch.
type Vector []float32

// Namespace is the internal bookkeeping every noun and verb's metadata
// always carries. Deleted is always indexed so soft-delete filtering is an
// O(1) bitmap intersection.
type Namespace struct {
	Deleted bool      `json:"deleted"`
	Indexed bool      `json:"indexed"`
	Version int       `json:"version"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// ValueKind tags a Value's underlying representation.
type ValueKind string

const (
	KindString    ValueKind = "string"
	KindInt       ValueKind = "int"
	KindFloat     ValueKind = "float"
	KindBool      ValueKind = "bool"
	KindTimestamp ValueKind = "timestamp"
	KindJSON      ValueKind = "json"
)

// Value is the small algebraic type metadata fields hold. Exactly one of
// the typed fields is meaningful, selected by Kind; JSON carries an
// already-marshaled blob for nested structures the index treats opaquely.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
	Time time.Time
	JSON []byte
}

func StringValue(s string) Value   { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value       { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value   { return Value{Kind: KindFloat, Flt: f} }
func BoolValue(b bool) Value       { return Value{Kind: KindBool, Bool: b} }
func TimeValue(t time.Time) Value  { return Value{Kind: KindTimestamp, Time: t} }
func JSONValue(b []byte) Value     { return Value{Kind: KindJSON, JSON: b} }

// String renders the value as its posting-list key representation. The
// kind tag is not part of the key, so values of different kinds can
// collide (IntValue(1) and StringValue("1") both render "1") — callers
// are expected to compare within one declared field type, matching how
// the metadata index treats a dotted path as having one kind for its
// lifetime.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindTimestamp:
		return v.Time.UTC().Format(time.RFC3339Nano)
	default:
		return string(v.JSON)
	}
}

// Metadata is a noun or verb's dotted-path field map plus its always-present
// internal namespace.
type Metadata struct {
	Namespace Namespace
	Fields    map[string]Value
}

// Clone returns a deep-enough copy for version snapshotting: the Fields map
// is copied, but Value contents (already immutable by convention) are not.
func (m Metadata) Clone() Metadata {
	fields := make(map[string]Value, len(m.Fields))
	for k, v := range m.Fields {
		fields[k] = v
	}
	return Metadata{Namespace: m.Namespace, Fields: fields}
}

// Noun is a typed, vector-carrying entity.
type Noun struct {
	ID         string
	Type       nountype.Type
	Vector     Vector
	Confidence float64
	Weight     float64
	PayloadHash string // blob hash of the opaque payload, empty if none
	Metadata   Metadata
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Evidence records how a verb was detected, when known.
type Evidence struct {
	SourceText string
	StartByte  int
	EndByte    int
	Method     verbtype.DetectionMethod
}

// Verb is a typed, directed, vector-carrying edge between two nouns.
type Verb struct {
	ID         string
	Source     string
	Target     string
	Type       verbtype.Type
	Vector     Vector
	Weight     float64
	Confidence float64
	Evidence   *Evidence
	Metadata   Metadata
}
