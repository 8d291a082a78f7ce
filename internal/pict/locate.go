// Package pict drives the external PICT generator as a child process: it
// resolves the executable, hands it a serialized model through a temp file,
// enforces the per-attempt wall budget, and parses the TSV it prints.
package pict

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// EnvPath overrides executable resolution when set.
const EnvPath = "PAIRWISE_PICT"

// Locate resolves the PICT executable: the PAIRWISE_PICT environment
// variable wins, then a $PATH lookup. Each call resolves afresh; the result
// is not cached.
func Locate() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s points at %q: %w", EnvPath, p, err)
		}
		return p, nil
	}
	name := "pict"
	if runtime.GOOS == "windows" {
		name = "pict.exe"
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("pict executable not found on PATH (set %s to override): %w", EnvPath, err)
	}
	return p, nil
}
