package model

import (
	"regexp"
	"strconv"
	"strings"
)

// disallowed matches every run of characters the generator cannot accept in
// an identifier. Conservative ASCII set; the generator's own rules for
// anything wider are undocumented.
var disallowed = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// MakeSafeName derives a generator-safe identifier from a display name:
// runs of disallowed characters collapse to a single underscore, leading
// digits and underscores are trimmed, and a numeric suffix (_2, _3, ...)
// keeps the result unique against taken. Deterministic and idempotent: a
// name that is already safe and unclaimed maps to itself.
func MakeSafeName(display string, taken map[string]bool) string {
	safe := disallowed.ReplaceAllString(display, "_")
	safe = strings.TrimLeft(safe, "0123456789_")
	if safe == "" {
		safe = "P"
	}

	candidate := safe
	for i := 2; taken[candidate]; i++ {
		candidate = safe + "_" + strconv.Itoa(i)
	}
	return candidate
}
