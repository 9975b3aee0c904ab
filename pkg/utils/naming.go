package utils

import (
	"strings"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
)

// GenerateCode derives a remote object code from a human label: upper-cased,
// every non-alphanumeric run collapsed to underscores, truncated. Remote
// systems key objects by code while humans rename labels, so the code must be
// reproducible from the schema alone.
func GenerateCode(name string, maxLen int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return Truncate(b.String(), maxLen)
}

// CleanLabel strips characters the remote rejects in display names
func CleanLabel(label string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(label)
}

// Truncate cuts a string to at most n bytes, safe for the ASCII codes and
// short names it is applied to
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ShortName derives the remote shortName variant of a label
func ShortName(label string) string {
	return Truncate(CleanLabel(label), constants.MaxShortNameLength)
}
