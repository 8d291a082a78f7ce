// Package model defines the pairwise parameter model: parsing the
// line-oriented text form, normalization, safe-name generation, the
// ordering plan fed to the generator, and serialization back to text.
//
// A Model is built once (from text or via AddParameter) and treated as
// immutable afterwards; the driver owns it for the duration of a run.
package model

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Parameter is a named dimension with an ordered list of distinct values.
type Parameter struct {
	// DisplayName is the user-facing name as declared, surrounding
	// whitespace stripped.
	DisplayName string

	// SafeName is the generator-compatible identifier derived from
	// DisplayName, unique across the model.
	SafeName string

	// Values are the value labels in declared order, surrounding
	// whitespace stripped, interior whitespace preserved.
	Values []string
}

// Model is an ordered sequence of parameters.
type Model struct {
	Parameters []Parameter

	safeNames map[string]bool
}

// New returns an empty model ready for AddParameter.
func New() *Model {
	return &Model{safeNames: make(map[string]bool)}
}

// AddParameter normalizes and appends a parameter.
//
// Rules:
//   - name must be non-empty after stripping, unique case-insensitively
//   - each value must be non-empty after stripping and free of comma, tab,
//     and newline (they could not survive serialization)
//   - duplicate values (case-sensitive) are rejected
func (m *Model) AddParameter(name string, values []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("parameter name is empty")
	}
	for _, p := range m.Parameters {
		if strings.EqualFold(p.DisplayName, name) {
			return fmt.Errorf("duplicate parameter name %q", name)
		}
	}

	cleaned := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return fmt.Errorf("parameter %q has an empty value", name)
		}
		if strings.ContainsAny(v, ",\t\n") {
			return fmt.Errorf("parameter %q value %q contains a comma, tab, or newline", name, v)
		}
		if seen[v] {
			return fmt.Errorf("parameter %q has duplicate value %q", name, v)
		}
		seen[v] = true
		cleaned = append(cleaned, v)
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("parameter %q has no values", name)
	}

	if m.safeNames == nil {
		m.safeNames = make(map[string]bool)
	}
	safe := MakeSafeName(name, m.safeNames)
	m.safeNames[safe] = true

	m.Parameters = append(m.Parameters, Parameter{
		DisplayName: name,
		SafeName:    safe,
		Values:      cleaned,
	})
	return nil
}

// Validate checks the whole-model invariants: at least two parameters, and
// at least one parameter with two or more values (otherwise no pair exists).
func (m *Model) Validate() error {
	if len(m.Parameters) < 2 {
		return fmt.Errorf("model must contain at least 2 parameters, got %d", len(m.Parameters))
	}
	for _, p := range m.Parameters {
		if len(p.Values) >= 2 {
			return nil
		}
	}
	return fmt.Errorf("model needs at least one parameter with 2 or more values")
}

// Counts returns the per-parameter value cardinalities in declared order.
func (m *Model) Counts() []int {
	counts := make([]int, len(m.Parameters))
	for i, p := range m.Parameters {
		counts[i] = len(p.Values)
	}
	return counts
}

// DisplayNames returns the declared parameter names in order.
func (m *Model) DisplayNames() []string {
	names := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		names[i] = p.DisplayName
	}
	return names
}

// SafeToDisplay maps each safe name back to its display name.
func (m *Model) SafeToDisplay() map[string]string {
	out := make(map[string]string, len(m.Parameters))
	for _, p := range m.Parameters {
		out[p.SafeName] = p.DisplayName
	}
	return out
}

// Reordered returns the parameters sorted by value count descending, ties
// keeping declared order. Feeding the generator wide parameters first tends
// to shrink its output; the emitted suite is re-projected back to declared
// order, so the plan never leaks to the user.
func (m *Model) Reordered() []Parameter {
	params := make([]Parameter, len(m.Parameters))
	copy(params, m.Parameters)
	sort.SliceStable(params, func(i, j int) bool {
		return len(params[i].Values) > len(params[j].Values)
	})
	return params
}

// Serialize renders params in the generator's text form: one
// "safe_name: v1, v2" line per parameter, trailing newline.
func Serialize(params []Parameter) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(p.SafeName)
		b.WriteString(": ")
		b.WriteString(strings.Join(p.Values, ", "))
		b.WriteByte('\n')
	}
	return b.String()
}

// Limits caps structural model size.
type Limits struct {
	MaxParams         int
	MaxValuesPerParam int
	MaxTotalValues    int
}

// DefaultLimits are generous enough for real models while keeping the
// verifier's pair matrix bounded.
func DefaultLimits() Limits {
	return Limits{MaxParams: 50, MaxValuesPerParam: 50, MaxTotalValues: 500}
}

// CheckLimits rejects models exceeding lim, naming the flag that raises the
// cap so the message is actionable.
func (m *Model) CheckLimits(lim Limits) error {
	if len(m.Parameters) > lim.MaxParams {
		return fmt.Errorf("model has %d parameters, exceeding limit of %d (raise with --max-params)",
			len(m.Parameters), lim.MaxParams)
	}
	total := 0
	for _, p := range m.Parameters {
		if len(p.Values) > lim.MaxValuesPerParam {
			return fmt.Errorf("parameter %q has %d values, exceeding limit of %d (raise with --max-values-per-param)",
				p.DisplayName, len(p.Values), lim.MaxValuesPerParam)
		}
		total += len(p.Values)
	}
	if total > lim.MaxTotalValues {
		return fmt.Errorf("model has %d total values, exceeding limit of %d (raise with --max-total-values)",
			total, lim.MaxTotalValues)
	}
	return nil
}

// Parse reads the line-oriented model text form.
//
// Grammar per line: NAME : V1, V2, ... Vk. Blank lines are skipped; lines
// starting with # or // are comments. A leading UTF-8 BOM and CRLF endings
// are tolerated. Errors in a parameter line identify its 1-based line
// number; UTF-8 and whole-model validation errors carry no line number.
func Parse(content string) (*Model, error) {
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("model text is not valid UTF-8")
	}
	content = strings.TrimPrefix(content, "\uFEFF")

	m := New()
	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		name, vals, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: missing colon in parameter definition: %q", i+1, line)
		}
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("line %d: parameter name is empty", i+1)
		}
		if err := m.AddParameter(name, strings.Split(vals, ",")); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
