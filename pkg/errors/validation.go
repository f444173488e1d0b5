package errors

import (
	"strconv"
	"strings"
	"unicode"
)

// maxLevelName bounds catalog level names, which also appear in cache keys.
const maxLevelName = 128

// ValidateLevelName validates a catalog level name.
//
// Level names are used in cache keys, file names and URLs, so the rules are
// conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateLevelName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidCatalog, "level name cannot be empty")
	}
	if len(name) > maxLevelName {
		return New(ErrCodeInvalidCatalog, "level name too long (max %d characters)", maxLevelName)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidCatalog, "level name %q contains whitespace or control characters", name)
		}
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return New(ErrCodeInvalidCatalog, "level name %q contains path characters", name)
	}
	return nil
}

// ValidatePath validates a relative output path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ParseSeed parses a decimal or 0x-prefixed hexadecimal 64-bit seed.
func ParseSeed(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, New(ErrCodeInvalidInput, "seed cannot be empty")
	}
	digits, base := s, 10
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		digits, base = s[2:], 16
	}
	seed, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, Wrap(ErrCodeInvalidInput, err, "invalid seed %q", s)
	}
	return seed, nil
}

// ValidateCount checks that a feature count lies in [lo, hi].
func ValidateCount(name string, n, lo, hi int) error {
	if n < lo || n > hi {
		return New(ErrCodeInvalidInput, "%s must be between %d and %d, got %d", name, lo, hi, n)
	}
	return nil
}
