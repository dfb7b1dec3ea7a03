// Package identifier holds the pure functions shared by every lineage
// engine: the stable node-id hash and the case-folding rules used to
// compare columns against dbt declarations.
package identifier

import "strconv"

// Hash computes the stable 32-bit string hash used as a graph node ID.
// The mix happens over unsigned 32-bit arithmetic; the result is then
// reinterpreted as a signed int32, so the final abs() is load-bearing:
// without it, names whose mix sets the top bit would hash to a negative
// string and split the same node across two IDs depending on sign.
func Hash(s string) string {
	var h uint32
	for _, r := range s {
		h = (h << 5) - h + uint32(r)
	}
	signed := int64(int32(h))
	if signed < 0 {
		signed = -signed
	}
	return strconv.FormatInt(signed, 10)
}
