// Package bounds computes the information-theoretic lower bound for
// pairwise test suites.
//
// Every unordered parameter pair (i, j) needs all c_i * c_j value
// combinations covered, and one test case covers exactly one combination per
// pair, so no suite can be smaller than the largest such product. The bound
// holds only for interaction strength 2; callers report it as absent at any
// other strength.
package bounds

// PairwiseLowerBound returns max over i<j of counts[i]*counts[j], the
// smallest possible pairwise suite size for the given parameter
// cardinalities. Returns 0 when fewer than two counts are supplied.
//
// The result depends only on the multiset of counts, so it is invariant
// under any parameter reordering.
func PairwiseLowerBound(counts []int) int {
	if len(counts) < 2 {
		return 0
	}
	lb := 0
	for i := 0; i < len(counts); i++ {
		for j := i + 1; j < len(counts); j++ {
			if p := counts[i] * counts[j]; p > lb {
				lb = p
			}
		}
	}
	return lb
}
