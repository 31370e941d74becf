package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// kindRegex matches artifact kinds. Kinds end up as file extensions in the
// cache directory, so they are restricted to a conservative alphabet.
var kindRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateKind validates an artifact kind such as "svg" or "pdf".
func ValidateKind(kind string) error {
	if kind == "" {
		return New(ErrCodeInvalidKind, "artifact kind cannot be empty")
	}
	if len(kind) > 32 {
		return New(ErrCodeInvalidKind, "artifact kind too long (max 32 characters)")
	}
	if !kindRegex.MatchString(kind) {
		return New(ErrCodeInvalidKind, "invalid artifact kind: %q", kind)
	}
	return nil
}

// ValidateName validates a slide or box name.
//
// Names are optional, but when present they must be printable and fit on a
// single line because they are used in log output and debug graphs.
func ValidateName(name string) error {
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "name contains invalid control characters")
		}
	}
	return nil
}

// ValidateOracleCommand rejects commands that would break the line protocol.
func ValidateOracleCommand(cmd string) error {
	if cmd == "" {
		return New(ErrCodeInvalidInput, "oracle command cannot be empty")
	}
	if strings.ContainsAny(cmd, "\r\n") {
		return New(ErrCodeInvalidInput, "oracle command must be a single line: %q", cmd)
	}
	return nil
}
