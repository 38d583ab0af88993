package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parseOneOf matches value against valid after trimming and lowercasing.
// kind names the enum in the error.
func parseOneOf[T ~string](valid []T, value, kind string) (T, error) {
	candidate := T(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(valid, candidate) {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
