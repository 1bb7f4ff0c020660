package store

import (
	"fmt"
	"strings"
)

const maxConfigValueLen = 512

// ValidTicker reports whether s is a plausible ticker symbol: non-empty,
// contains at least one alphanumeric, and uses only alphanumerics, '.' and '-'.
// Anything else is rejected before it can reach query text.
func ValidTicker(s string) bool {
	if s == "" {
		return false
	}
	hasAlnum := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			hasAlnum = true
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	return hasAlnum
}

// CheckConfigValue validates a value before it is interpolated into engine
// configuration SQL (SET s3_region = '...'). Quotes, statement separators and
// comment markers are rejected outright rather than escaped.
func CheckConfigValue(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("config value is empty")
	case len(s) > maxConfigValueLen:
		return fmt.Errorf("config value exceeds %d bytes", maxConfigValueLen)
	case strings.ContainsAny(s, `'";`):
		return fmt.Errorf("config value contains forbidden character")
	case strings.Contains(s, "--"):
		return fmt.Errorf("config value contains comment sequence")
	}
	return nil
}

// QuoteLiteral renders s as a single-quoted SQL string literal, doubling any
// embedded single quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
