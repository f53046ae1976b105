package semantic

import "sort"

// sortInferences orders results by confidence descending, tie-broken by
// type name for determinism.
func sortInferences(results []Inference) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Type < results[j].Type
	})
}
