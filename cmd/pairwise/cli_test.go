package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pairwise/internal/exitcode"
)

// helpText returns the overall usage listing.
func helpText() string {
	var sb strings.Builder
	printUsage(&sb)
	return sb.String()
}

// longHelpText returns the long help for a named command.
func longHelpText(name string) string {
	var sb strings.Builder
	printCommandHelp(&sb, name)
	return sb.String()
}

// runCLI invokes the command barrier with captured streams.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errBuf bytes.Buffer
	code = run(args, &out, &errBuf)
	return code, out.String(), errBuf.String()
}

// writeModel writes a model file into a temp dir and returns its path.
func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.pict")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

// installFakePict points PAIRWISE_PICT at a shell script for the test.
func installFakePict(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script fake generator requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "pict")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake pict: %v", err)
	}
	t.Setenv("PAIRWISE_PICT", path)
}

const smallModelText = "a: A1, A2\nb: B1, B2\n"

// fullTSV prints a complete 2x2 pairwise suite.
const fullTSV = `printf 'a\tb\nA1\tB1\nA1\tB2\nA2\tB1\nA2\tB2\n'`

// partialTSV misses the (A2, B2) pair.
const partialTSV = `printf 'a\tb\nA1\tB1\nA1\tB2\nA2\tB1\n'`

// ---------------------------------------------------------------------------
// Dispatch and help invariants
// ---------------------------------------------------------------------------

func TestHelpContainsAllCommands(t *testing.T) {
	help := helpText()
	for _, cmd := range commands {
		if !strings.Contains(help, cmd.name) {
			t.Errorf("help output missing command %q", cmd.name)
		}
		if !strings.Contains(help, cmd.short) {
			t.Errorf("help output missing short description %q", cmd.short)
		}
	}
}

func TestLongHelpForKnownCommands(t *testing.T) {
	for _, cmd := range commands {
		long := longHelpText(cmd.name)
		if !strings.Contains(long, cmd.usage) {
			t.Errorf("long help for %q missing usage line %q", cmd.name, cmd.usage)
		}
	}
}

func TestLongHelpUnknownCommand(t *testing.T) {
	if long := longHelpText("nonsense"); !strings.Contains(long, "unknown command") {
		t.Errorf("long help for unknown command = %q", long)
	}
}

func TestUnknownCommandExitsValidation(t *testing.T) {
	code, _, stderr := runCLI(t, "frobnicate")
	if code != exitcode.Validation {
		t.Errorf("exit code = %d, want %d", code, exitcode.Validation)
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestHelpFlagExitsZero(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")
	if code != exitcode.Success {
		t.Errorf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != exitcode.Success {
		t.Errorf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "pairwise "+version) {
		t.Errorf("stdout = %q", stdout)
	}
}

// ---------------------------------------------------------------------------
// generate: validation boundaries
// ---------------------------------------------------------------------------

func TestGenerateValidationFailures(t *testing.T) {
	modelPath := writeModel(t, smallModelText)
	tests := []struct {
		name string
		args []string
	}{
		{"missing model flag", []string{"generate"}},
		{"tries zero", []string{"generate", "--model", modelPath, "--tries", "0"}},
		{"tries above max", []string{"generate", "--model", modelPath, "--tries", "6000"}},
		{"strength one", []string{"generate", "--model", modelPath, "--strength", "1"}},
		{"zero pict timeout", []string{"generate", "--model", modelPath, "--pict-timeout-sec", "0"}},
		{"zero total timeout", []string{"generate", "--model", modelPath, "--total-timeout-sec", "0"}},
		{"bad format", []string{"generate", "--model", modelPath, "--format", "xml"}},
		{"bad ordering", []string{"generate", "--model", modelPath, "--ordering", "random"}},
		{"missing file", []string{"generate", "--model", filepath.Join(t.TempDir(), "absent.pict")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, tt.args...)
			if code != exitcode.Validation {
				t.Errorf("exit code = %d, want %d", code, exitcode.Validation)
			}
			if stdout != "" {
				t.Errorf("validation failure wrote to stdout: %q", stdout)
			}
		})
	}
}

func TestGenerateRejectsMalformedModel(t *testing.T) {
	path := writeModel(t, "only-one-line-no-colon\n")
	code, _, stderr := runCLI(t, "generate", "--model", path)
	if code != exitcode.Validation {
		t.Errorf("exit code = %d, want %d", code, exitcode.Validation)
	}
	if !strings.Contains(stderr, "line 1") {
		t.Errorf("stderr = %q, want line number", stderr)
	}
}

func TestGenerateRejectsNonUTF8Model(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pict")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 'a', ':', 'b'}, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	code, _, stderr := runCLI(t, "generate", "--model", path)
	if code != exitcode.Validation {
		t.Errorf("exit code = %d, want %d", code, exitcode.Validation)
	}
	if !strings.Contains(stderr, "UTF-8") {
		t.Errorf("stderr = %q, want UTF-8 diagnostic, not a decoder fault", stderr)
	}
}

func TestGenerateDryRunSkipsGenerator(t *testing.T) {
	// No fake generator installed: dry-run must still succeed.
	t.Setenv("PAIRWISE_PICT", "")
	path := writeModel(t, smallModelText)
	code, stdout, stderr := runCLI(t, "generate", "--model", path, "--dry-run", "--deterministic", "--seed", "5", "--tries", "3")
	if code != exitcode.Success {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if stdout != "" {
		t.Errorf("dry run wrote to stdout: %q", stdout)
	}
	if !strings.Contains(stderr, "5 through 7") {
		t.Errorf("stderr = %q, want planned seed range", stderr)
	}
}

// ---------------------------------------------------------------------------
// generate: end-to-end against the fake generator
// ---------------------------------------------------------------------------

func TestGenerateTableOutput(t *testing.T) {
	installFakePict(t, fullTSV)
	path := writeModel(t, smallModelText)

	code, stdout, stderr := runCLI(t, "generate", "--model", path, "--tries", "1", "--deterministic")
	if code != exitcode.Success {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("table has %d lines, want header+dashes+4 rows:\n%s", len(lines), stdout)
	}
	if !strings.HasPrefix(lines[1], "-") {
		t.Errorf("second line %q is not the dash row", lines[1])
	}
}

func TestGenerateJSONMetadata(t *testing.T) {
	installFakePict(t, fullTSV)
	path := writeModel(t, smallModelText)

	code, stdout, stderr := runCLI(t, "generate", "--model", path, "--format", "struct", "--tries", "1", "--deterministic")
	if code != exitcode.Success {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	for _, want := range []string{
		`"n": 4`,
		`"lb": 4`,
		`"verified": true`,
		`"provably_minimum": true`,
		`"seed": 0`,
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("JSON output missing %s:\n%s", want, stdout)
		}
	}
}

func TestGenerateDeterministicRunsAreByteIdentical(t *testing.T) {
	installFakePict(t, fullTSV)
	path := writeModel(t, smallModelText)
	args := []string{"generate", "--model", path, "--format", "json", "--tries", "3", "--seed", "123", "--deterministic"}

	_, first, _ := runCLI(t, args...)
	_, second, _ := runCLI(t, args...)
	if first == "" || first != second {
		t.Error("deterministic runs differ byte-for-byte")
	}
}

func TestGenerateNoVerifyReportsUnverified(t *testing.T) {
	installFakePict(t, partialTSV)
	path := writeModel(t, smallModelText)

	code, stdout, stderr := runCLI(t, "generate", "--model", path, "--format", "json", "--tries", "1", "--no-verify")
	if code != exitcode.Success {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, `"verified": false`) {
		t.Errorf("JSON output should report verified=false:\n%s", stdout)
	}
}

func TestGenerateVerificationFailure(t *testing.T) {
	installFakePict(t, partialTSV)
	path := writeModel(t, smallModelText)

	code, stdout, stderr := runCLI(t, "generate", "--model", path, "--tries", "2", "--deterministic")
	if code != exitcode.Verification {
		t.Fatalf("exit code = %d, want %d (stderr %q)", code, exitcode.Verification, stderr)
	}
	if stdout != "" {
		t.Errorf("verification failure wrote to stdout: %q", stdout)
	}
	if !strings.Contains(stderr, "missing pair") {
		t.Errorf("stderr = %q, want missing pair listing", stderr)
	}
}

func TestGenerateGeneratorError(t *testing.T) {
	installFakePict(t, `echo "model error" >&2; exit 1`)
	path := writeModel(t, smallModelText)

	code, _, stderr := runCLI(t, "generate", "--model", path, "--tries", "2")
	if code != exitcode.Generator {
		t.Fatalf("exit code = %d, want %d", code, exitcode.Generator)
	}
	if !strings.Contains(stderr, "model error") {
		t.Errorf("stderr = %q, want generator stderr tail", stderr)
	}
}

func TestGenerateTimeout(t *testing.T) {
	installFakePict(t, `sleep 30`)
	path := writeModel(t, smallModelText)

	code, _, _ := runCLI(t, "generate", "--model", path,
		"--tries", "2", "--pict-timeout-sec", "0.1", "--total-timeout-sec", "0.3")
	if code != exitcode.Timeout {
		t.Fatalf("exit code = %d, want %d", code, exitcode.Timeout)
	}
}

func TestGenerateOutFile(t *testing.T) {
	installFakePict(t, fullTSV)
	modelPath := writeModel(t, smallModelText)
	outPath := filepath.Join(t.TempDir(), "cases.csv")

	code, stdout, stderr := runCLI(t, "generate", "--model", modelPath,
		"--format", "csv", "--out", outPath, "--tries", "1")
	if code != exitcode.Success {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if stdout != "" {
		t.Errorf("--out still wrote to stdout: %q", stdout)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read out file: %v", err)
	}
	if !strings.HasPrefix(string(data), "a,b\n") {
		t.Errorf("csv header = %q", string(data))
	}
}

// ---------------------------------------------------------------------------
// verify command
// ---------------------------------------------------------------------------

func TestVerifyCommandPassesOnFullCSV(t *testing.T) {
	modelPath := writeModel(t, smallModelText)
	casesPath := filepath.Join(t.TempDir(), "cases.csv")
	csv := "a,b\nA1,B1\nA1,B2\nA2,B1\nA2,B2\n"
	if err := os.WriteFile(casesPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("write cases: %v", err)
	}
	code, _, stderr := runCLI(t, "verify", "--model", modelPath, "--cases", casesPath)
	if code != exitcode.Success {
		t.Errorf("exit code = %d, stderr = %q", code, stderr)
	}
}

func TestVerifyCommandReportsMissingPair(t *testing.T) {
	modelPath := writeModel(t, smallModelText)
	casesPath := filepath.Join(t.TempDir(), "cases.csv")
	csv := "a,b\nA1,B1\nA1,B2\nA2,B1\n"
	if err := os.WriteFile(casesPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("write cases: %v", err)
	}
	code, _, stderr := runCLI(t, "verify", "--model", modelPath, "--cases", casesPath)
	if code != exitcode.Verification {
		t.Errorf("exit code = %d, want %d", code, exitcode.Verification)
	}
	if !strings.Contains(stderr, "(a: A2, b: B2)") {
		t.Errorf("stderr = %q, want the missing pair identified", stderr)
	}
}

func TestVerifyCommandAcceptsStructuredJSON(t *testing.T) {
	modelPath := writeModel(t, smallModelText)
	casesPath := filepath.Join(t.TempDir(), "cases.json")
	doc := `{"metadata": {"n": 4}, "test_cases": [
		{"a": "A1", "b": "B1"}, {"a": "A1", "b": "B2"},
		{"a": "A2", "b": "B1"}, {"a": "A2", "b": "B2"}]}`
	if err := os.WriteFile(casesPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write cases: %v", err)
	}
	code, _, stderr := runCLI(t, "verify", "--model", modelPath, "--cases", casesPath)
	if code != exitcode.Success {
		t.Errorf("exit code = %d, stderr = %q", code, stderr)
	}
}

func TestVerifyCommandMissingFlags(t *testing.T) {
	code, _, _ := runCLI(t, "verify")
	if code != exitcode.Validation {
		t.Errorf("exit code = %d, want %d", code, exitcode.Validation)
	}
}
