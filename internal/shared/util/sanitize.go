package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 200

// SanitizeFileName normalizes a carrier-supplied file name for use inside an
// object-storage key. Path separators and whitespace become underscores,
// control characters are stripped, traversal patterns are rejected, and
// overlong names are truncated.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsSpace(r):
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if len(s) > maxFileNameLen {
		s = s[:maxFileNameLen]
	}
	return s, nil
}
