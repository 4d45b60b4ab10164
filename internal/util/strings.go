package util

import (
	"net/url"
	"strings"
)

// TrimSpaceFields trims whitespace from multiple string fields
func TrimSpaceFields(fields ...string) []string {
	result := make([]string, len(fields))
	for i, field := range fields {
		result[i] = strings.TrimSpace(field)
	}
	return result
}

// TrimAndLower trims whitespace and converts to lowercase
func TrimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TrimEmptyCheck trims whitespace and checks if non-empty
func TrimEmptyCheck(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}

// TrimWithDefault trims whitespace and returns default if empty
func TrimWithDefault(s, defaultValue string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return defaultValue
	}
	return trimmed
}

// SameName compares two display names the way the server's web UI does:
// both sides lower-cased, then compared exactly. No trimming.
func SameName(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p, ok := TrimEmptyCheck(part); ok {
			out = append(out, p)
		}
	}
	return out
}

// EscapeComponent escapes s for use as one query or path component. Spaces
// become %20 rather than '+'.
func EscapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
