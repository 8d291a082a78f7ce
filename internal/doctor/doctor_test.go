package doctor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pairwise/internal/exitcode"
)

// fakePict writes an executable generator stand-in and returns its path.
func fakePict(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script fake generator requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "pict")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake pict: %v", err)
	}
	return path
}

func TestRunPassesWithWorkingGenerator(t *testing.T) {
	// The smoke model uses safe names a and b.
	path := fakePict(t, `printf 'a\tb\nA1\tB1\nA1\tB2\nA2\tB1\nA2\tB2\n'`)

	var out bytes.Buffer
	if err := Run(context.Background(), &out, path); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	report := out.String()
	for _, want := range []string{"Platform", path, "OK", "All doctor checks passed."} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRunFailsWhenGeneratorBroken(t *testing.T) {
	path := fakePict(t, `echo "no license" >&2; exit 2`)

	var out bytes.Buffer
	err := Run(context.Background(), &out, path)
	if err == nil {
		t.Fatal("Run succeeded with a broken generator")
	}
	if code := exitcode.Classify(err); code != exitcode.Generator {
		t.Errorf("exit code = %d, want %d", code, exitcode.Generator)
	}
}

func TestRunFailsWhenSuiteIncomplete(t *testing.T) {
	path := fakePict(t, `printf 'a\tb\nA1\tB1\nA1\tB2\nA2\tB1\n'`)

	var out bytes.Buffer
	err := Run(context.Background(), &out, path)
	if err == nil {
		t.Fatal("Run accepted an incomplete smoke suite")
	}
}

func TestRunFailsWhenExecutableMissing(t *testing.T) {
	t.Setenv("PAIRWISE_PICT", "")
	t.Setenv("PATH", t.TempDir())

	var out bytes.Buffer
	err := Run(context.Background(), &out, "")
	if err == nil {
		t.Fatal("Run succeeded without a generator executable")
	}
	if code := exitcode.Classify(err); code != exitcode.Validation {
		t.Errorf("exit code = %d, want %d", code, exitcode.Validation)
	}
}
