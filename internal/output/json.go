package output

// json.go — the structured emission form.
//
// The object has exactly two top-level members, metadata then test_cases.
// Test-case objects keep their keys in the model's declared parameter
// order, which encoding/json's map type would destroy; orderedObject
// marshals key/value pairs by hand (values still encode through
// encoding/json, so quoting stays correct). Output is byte-identical for
// identical runs.

import (
	"bytes"
	"encoding/json"
)

// Metadata is the structured output's metadata block. Field order is the
// emission order.
type Metadata struct {
	N               int    `json:"n"`
	LB              *int   `json:"lb"`
	Verified        bool   `json:"verified"`
	OrderingMode    string `json:"ordering_mode"`
	Seed            int    `json:"seed"`
	Strength        int    `json:"strength"`
	Attempts        int    `json:"attempts"`
	EarlyStopped    bool   `json:"early_stopped"`
	ProvablyMinimum bool   `json:"provably_minimum"`
}

// orderedObject is a JSON object whose keys emit in insertion order.
type orderedObject struct {
	keys   []string
	values []string
}

func (o *orderedObject) set(key, value string) {
	o.keys = append(o.keys, key)
	o.values = append(o.values, value)
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// structured mirrors the two-member top-level object.
type structured struct {
	Metadata  Metadata         `json:"metadata"`
	TestCases []*orderedObject `json:"test_cases"`
}

// JSON renders the structured form: metadata plus test cases keyed by
// display name in declared order, two-space indented, trailing newline.
func JSON(meta Metadata, headers []string, rows [][]string) (string, error) {
	doc := structured{
		Metadata:  meta,
		TestCases: make([]*orderedObject, 0, len(rows)),
	}
	for _, row := range rows {
		obj := &orderedObject{}
		for i, h := range headers {
			if i < len(row) {
				obj.set(h, row[i])
			}
		}
		doc.TestCases = append(doc.TestCases, obj)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}
