package identifier

import "strings"

// EqualFold reports whether a and b are the same identifier ignoring
// case, matching the case-insensitive comparisons the lineage engines
// perform against dbt declarations.
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Upper upper-cases s before it is handed to the SQL Lineage Adapter,
// which expects target column names in upper case.
func Upper(s string) string {
	return strings.ToUpper(s)
}

// UpperAll upper-cases every element of ss.
func UpperAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(s)
	}
	return out
}

// ContainsFold reports whether set contains target, compared
// case-insensitively.
func ContainsFold(set []string, target string) bool {
	for _, s := range set {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}

// FilterColumns returns the subset of requested that appear (case-
// insensitively) in declared. If declared is empty — a model that
// declares no columns at all — requested passes through unfiltered;
// the forward lineage engine relies on this.
func FilterColumns(requested, declared []string) []string {
	if len(declared) == 0 {
		return requested
	}
	out := make([]string, 0, len(requested))
	for _, r := range requested {
		if ContainsFold(declared, r) {
			out = append(out, r)
		}
	}
	return out
}

// ResourceTypes is the probe order FindNode/FindCatalog use: model,
// then seed, then snapshot.
var ResourceTypes = []string{"model", "seed", "snapshot"}

// UniqueID builds a dbt unique_id of the form "<resourceType>.<project>.<name>".
func UniqueID(resourceType, project, name string) string {
	return resourceType + "." + project + "." + name
}
