package main

// verify.go — the verify command: load a model and an existing cases file
// (CSV or JSON), re-project the cases to declared order, and run the
// in-process coverage proof.

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"pairwise/internal/exitcode"
	"pairwise/internal/model"
	"pairwise/internal/verify"
)

func runVerify(env *environment, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	modelPath := fs.String("model", "", "path to the model file (required)")
	casesPath := fs.String("cases", "", "path to the cases file, CSV or JSON (required)")
	if err := fs.Parse(args); err != nil {
		return exitcode.Wrap(exitcode.KindValidation, err)
	}
	if *modelPath == "" || *casesPath == "" {
		return exitcode.New(exitcode.KindValidation, "verify requires --model FILE and --cases FILE")
	}

	m, err := readModelFile(*modelPath)
	if err != nil {
		return err
	}

	rows, err := readCases(*casesPath, m)
	if err != nil {
		return err
	}

	report := verify.Suite(m, rows)
	if !report.Passed {
		switch report.Kind {
		case verify.FailureMissingPairs:
			fmt.Fprintln(env.stderr, "coverage verification failed; missing pairs:")
			for _, p := range report.MissingPairs {
				fmt.Fprintf(env.stderr, "  missing pair: %s\n", p)
			}
			return exitcode.New(exitcode.KindVerification, "suite does not cover all pairs")
		default:
			return exitcode.New(exitcode.KindVerification, "suite rejected: %s", report.Detail)
		}
	}
	fmt.Fprintln(env.stderr, "coverage verified successfully")
	return nil
}

// readCases loads a cases file and re-projects its columns to the model's
// declared order. JSON is detected by extension; everything else is CSV.
func readCases(path string, m *model.Model) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exitcode.New(exitcode.KindValidation, "file not found: %s", path)
	}
	if !utf8.Valid(data) {
		return nil, exitcode.New(exitcode.KindValidation, "cases file is not valid UTF-8 text: %s", path)
	}

	if strings.HasSuffix(path, ".json") {
		return casesFromJSON(data, m)
	}
	return casesFromCSV(data, m)
}

// structuredCases matches the structured output form.
type structuredCases struct {
	TestCases []map[string]any `json:"test_cases"`
}

// casesFromJSON accepts both the bare array of objects and the structured
// {metadata, test_cases} form. Objects are keyed by display name; absent
// keys become empty cells and fail verification downstream. Non-string
// values are rendered with their default formatting.
func casesFromJSON(data []byte, m *model.Model) ([][]string, error) {
	var cases []map[string]any

	var wrapped structuredCases
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.TestCases != nil {
		cases = wrapped.TestCases
	} else if err := json.Unmarshal(data, &cases); err != nil {
		return nil, exitcode.New(exitcode.KindValidation, "cases JSON is invalid: %v", err)
	}

	rows := make([][]string, 0, len(cases))
	for _, tc := range cases {
		row := make([]string, len(m.Parameters))
		for i, name := range m.DisplayNames() {
			switch v := tc[name].(type) {
			case nil:
				row[i] = ""
			case string:
				row[i] = v
			default:
				row[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// casesFromCSV maps the header row to declared parameters by display name.
func casesFromCSV(data []byte, m *model.Model) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, exitcode.New(exitcode.KindValidation, "cases CSV is invalid: %v", err)
	}
	if len(records) == 0 {
		return nil, exitcode.New(exitcode.KindValidation, "cases file is empty")
	}

	headerIdx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		headerIdx[strings.TrimSpace(h)] = i
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(m.Parameters))
		for i, name := range m.DisplayNames() {
			if col, ok := headerIdx[name]; ok && col < len(rec) {
				row[i] = rec[col]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
