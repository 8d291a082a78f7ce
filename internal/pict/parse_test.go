package pict

import (
	"reflect"
	"strings"
	"testing"

	"pairwise/internal/model"
)

// testModel builds a 3-parameter model whose safe names differ from the
// display names.
func testModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	for _, p := range [][]string{
		{"Browser Type", "Chrome", "Firefox"},
		{"OS", "Linux", "macOS"},
		{"Arch", "amd64", "arm64"},
	} {
		if err := m.AddParameter(p[0], p[1:]); err != nil {
			t.Fatalf("AddParameter: %v", err)
		}
	}
	return m
}

func TestParseTSVDeclaredOrderPassThrough(t *testing.T) {
	m := testModel(t)
	out := "Browser_Type\tOS\tArch\nChrome\tLinux\tamd64\nFirefox\tmacOS\tarm64\n"
	rows, err := parseTSV(out, m)
	if err != nil {
		t.Fatalf("parseTSV: %v", err)
	}
	want := [][]string{
		{"Chrome", "Linux", "amd64"},
		{"Firefox", "macOS", "arm64"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestParseTSVReprojectsGenerationOrder(t *testing.T) {
	m := testModel(t)
	// Header in a different order than declared; rows must come back in
	// declared order.
	out := "Arch\tBrowser_Type\tOS\narm64\tChrome\tmacOS\n"
	rows, err := parseTSV(out, m)
	if err != nil {
		t.Fatalf("parseTSV: %v", err)
	}
	want := [][]string{{"Chrome", "macOS", "arm64"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestParseTSVToleratesBOMAndCRLF(t *testing.T) {
	m := testModel(t)
	out := "\ufeffBrowser_Type\tOS\tArch\r\nChrome\tLinux\tamd64\r\n\r\n"
	rows, err := parseTSV(out, m)
	if err != nil {
		t.Fatalf("parseTSV: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "Chrome" {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseTSVTrimsCellWhitespaceOnly(t *testing.T) {
	m := testModel(t)
	out := "Browser_Type\tOS\tArch\n Chrome \tLinux\tamd64\n"
	rows, err := parseTSV(out, m)
	if err != nil {
		t.Fatalf("parseTSV: %v", err)
	}
	if rows[0][0] != "Chrome" {
		t.Errorf("cell = %q, want surrounding whitespace stripped", rows[0][0])
	}
}

func TestParseTSVErrors(t *testing.T) {
	m := testModel(t)
	tests := []struct {
		name    string
		out     string
		wantSub string
	}{
		{"empty", "", "no header"},
		{"blank only", "\n\n", "no header"},
		{"unknown column", "Browser_Type\tOS\tBogus\nx\ty\tz\n", "unknown column"},
		{"missing column", "Browser_Type\tOS\nChrome\tLinux\n", "header has 2 columns"},
		{"duplicate column", "Browser_Type\tOS\tOS\nx\ty\tz\n", "duplicate column"},
		{"short row", "Browser_Type\tOS\tArch\nChrome\tLinux\n", "row 1 has 2 columns"},
		{"long row", "Browser_Type\tOS\tArch\nChrome\tLinux\tamd64\textra\n", "row 1 has 4 columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTSV(tt.out, m)
			if err == nil {
				t.Fatal("parseTSV succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not contain %q", err, tt.wantSub)
			}
		})
	}
}
