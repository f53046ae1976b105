package migration

import (
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/verbtype"
)

// TypeFieldKey is the dotted metadata path verb records mirror their
// closed-enum Type into, so the migration runner (which only ever sees
// metadata, not the strongly-typed model.Verb) can rewrite it.
const TypeFieldKey = "_brainy.verbType"

// DeprecatedVerbTypeMigration rewrites any verb whose mirrored type
// field names a retired verbtype.Type to its live replacement. A no-op
// (nil) is returned for nouns and for verbs already on a live type, so
// re-running it against already-migrated data is a safe no-op per the
// idempotence invariant.
var DeprecatedVerbTypeMigration = Migration{
	ID:        "2026-rewrite-deprecated-verb-types",
	Transform: rewriteDeprecatedVerbType,
}

func rewriteDeprecatedVerbType(meta model.Metadata) (*model.Metadata, error) {
	field, ok := meta.Fields[TypeFieldKey]
	if !ok || field.Kind != model.KindString {
		return nil, nil
	}
	replacement, deprecated := verbtype.Deprecated[verbtype.Type(field.Str)]
	if !deprecated {
		return nil, nil
	}
	next := meta.Clone()
	next.Fields[TypeFieldKey] = model.StringValue(string(replacement))
	return &next, nil
}
