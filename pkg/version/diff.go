package version

import (
	"context"

	"github.com/cuemby/noundb/pkg/model"
)

// FieldChange is one modified field between two version snapshots.
type FieldChange struct {
	Path   string
	Before model.Value
	After  model.Value
}

// Diff is a structural comparison between two version snapshots' field
// maps. Namespace bookkeeping fields are not compared; callers diffing
// the metadata history care about the content, not version/timestamp.
type Diff struct {
	Added       []string
	Removed     []string
	Modified    []FieldChange
	TypeChanged []string
}

// Compare diffs version a against version b (a is "before", b is
// "after") for entityID on branch.
func (idx *Index) Compare(ctx context.Context, entityID, branch string, a, b int) (Diff, error) {
	before, err := idx.GetContent(ctx, entityID, branch, a)
	if err != nil {
		return Diff{}, err
	}
	after, err := idx.GetContent(ctx, entityID, branch, b)
	if err != nil {
		return Diff{}, err
	}
	return diffFields(before.Fields, after.Fields), nil
}

func diffFields(before, after map[string]model.Value) Diff {
	var d Diff
	for path, av := range after {
		bv, existed := before[path]
		if !existed {
			d.Added = append(d.Added, path)
			continue
		}
		if bv.Kind != av.Kind {
			d.TypeChanged = append(d.TypeChanged, path)
			continue
		}
		if bv.String() != av.String() {
			d.Modified = append(d.Modified, FieldChange{Path: path, Before: bv, After: av})
		}
	}
	for path := range before {
		if _, stillPresent := after[path]; !stillPresent {
			d.Removed = append(d.Removed, path)
		}
	}
	return d
}
