package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// ValidateID validates a wall, tile or user identifier.
//
// Identifiers end up in blob keys, NATS subjects and PostgREST filters, so the
// rules are strict:
//   - No empty identifiers
//   - Maximum length of 128 characters
//   - Only letters, digits, dash and underscore
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "%s id too long (max 128 characters)", kind)
	}
	if !idRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "%s id contains invalid characters: %q", kind, id)
	}
	return nil
}

var idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateJoinCode validates a join code as typed by a user.
// Codes are alphanumeric and between 4 and 32 characters long.
func ValidateJoinCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return New(ErrCodeInvalidInput, "join code cannot be empty")
	}
	if len(code) < 4 || len(code) > 32 {
		return New(ErrCodeInvalidInput, "join code must be 4-32 characters")
	}
	for _, r := range code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return New(ErrCodeInvalidInput, "join code must be alphanumeric")
		}
	}
	return nil
}

// ValidateUploadFilename validates the name of a file being uploaded.
// Only the extension survives into the stored object key, but it must be a
// plain basename with a short extension.
func ValidateUploadFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "filename cannot be empty")
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return New(ErrCodeInvalidPath, "filename cannot contain path separators")
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return New(ErrCodeInvalidPath, "filename %q has no extension", name)
	}
	if len(ext) > 8 {
		return New(ErrCodeInvalidPath, "filename extension too long: %q", ext)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
