// Package verify proves that a candidate suite covers every unordered
// value pair of a model.
//
// The verifier is the independent check on the external generator's output:
// it never trusts the generator, streams every row through per-pair seen
// sets, and reports failures as structured diagnostics rather than errors.
// Runtime is O(rows * parameters^2).
package verify

import (
	"fmt"

	"pairwise/internal/model"
)

// FailureKind distinguishes why verification failed.
type FailureKind int

const (
	// FailureNone means the suite verified.
	FailureNone FailureKind = iota

	// FailureMissingPairs means one or more value pairs never appeared.
	FailureMissingPairs

	// FailureUnknownValue means a row held a label outside the model.
	FailureUnknownValue

	// FailureSchemaMismatch means a row's column count did not match the
	// model's parameter count.
	FailureSchemaMismatch
)

// MissingPair identifies one uncovered value combination.
type MissingPair struct {
	ParamA, ParamB string
	ValueA, ValueB string
}

// String renders the pair in the diagnostic form shown to users.
func (p MissingPair) String() string {
	return fmt.Sprintf("(%s: %s, %s: %s)", p.ParamA, p.ValueA, p.ParamB, p.ValueB)
}

// maxMissingReported bounds the missing-pair list in a Report.
const maxMissingReported = 20

// Report is the outcome of a verification pass.
type Report struct {
	Passed bool
	Kind   FailureKind

	// MissingPairs holds up to maxMissingReported uncovered pairs, in
	// pair-index then declared-value order. Set when Kind is
	// FailureMissingPairs.
	MissingPairs []MissingPair

	// Detail carries the diagnostic for unknown-value and schema-mismatch
	// failures.
	Detail string
}

// Suite checks that rows (columns in the model's declared order) cover
// every unordered value pair. It always returns a Report; malformed rows
// become diagnostics, never panics or errors.
func Suite(m *model.Model, rows [][]string) Report {
	n := len(m.Parameters)

	// Value label -> index per parameter, for O(1) row decoding.
	index := make([]map[string]int, n)
	for i, p := range m.Parameters {
		index[i] = make(map[string]int, len(p.Values))
		for vi, v := range p.Values {
			index[i][v] = vi
		}
	}

	// seen[k] is the coverage set for the k-th pair (i, j), i<j, flattened
	// as vi*cj+vj. covered[k] counts distinct entries.
	type pairState struct {
		i, j    int
		seen    []bool
		covered int
	}
	var pairs []pairState
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pairState{
				i:    i,
				j:    j,
				seen: make([]bool, len(m.Parameters[i].Values)*len(m.Parameters[j].Values)),
			})
		}
	}

	for r, row := range rows {
		if len(row) != n {
			return Report{
				Kind:   FailureSchemaMismatch,
				Detail: fmt.Sprintf("row %d has %d columns, model has %d parameters", r+1, len(row), n),
			}
		}
		decoded := make([]int, n)
		for i, v := range row {
			vi, ok := index[i][v]
			if !ok {
				return Report{
					Kind: FailureUnknownValue,
					Detail: fmt.Sprintf("row %d: unknown value %q for parameter %q",
						r+1, v, m.Parameters[i].DisplayName),
				}
			}
			decoded[i] = vi
		}
		for k := range pairs {
			ps := &pairs[k]
			slot := decoded[ps.i]*len(m.Parameters[ps.j].Values) + decoded[ps.j]
			if !ps.seen[slot] {
				ps.seen[slot] = true
				ps.covered++
			}
		}
	}

	var missing []MissingPair
	for k := range pairs {
		ps := &pairs[k]
		pi, pj := m.Parameters[ps.i], m.Parameters[ps.j]
		if ps.covered == len(pi.Values)*len(pj.Values) {
			continue
		}
		for a := 0; a < len(pi.Values) && len(missing) < maxMissingReported; a++ {
			for b := 0; b < len(pj.Values) && len(missing) < maxMissingReported; b++ {
				if !ps.seen[a*len(pj.Values)+b] {
					missing = append(missing, MissingPair{
						ParamA: pi.DisplayName, ParamB: pj.DisplayName,
						ValueA: pi.Values[a], ValueB: pj.Values[b],
					})
				}
			}
		}
		if len(missing) >= maxMissingReported {
			break
		}
	}

	if len(missing) > 0 {
		return Report{Kind: FailureMissingPairs, MissingPairs: missing}
	}
	return Report{Passed: true, Kind: FailureNone}
}
