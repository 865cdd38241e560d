// Package validate provides pure field validation helpers shared by the
// auth session manager and the HTTP handlers. Nothing here touches I/O.
package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email reports whether s looks like a well-formed email address.
func Email(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// Required reports whether s contains any non-whitespace content.
func Required(s string) bool {
	return strings.TrimSpace(s) != ""
}

// MinLength reports whether s has at least n characters after trimming.
func MinLength(s string, n int) bool {
	return len(strings.TrimSpace(s)) >= n
}

// Digits reports whether s is non-empty and consists only of ASCII digits.
func Digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Pincode reports whether s is exactly six digits.
func Pincode(s string) bool {
	return len(s) == 6 && Digits(s)
}

// PasswordStrength checks a password for minimum length and character
// variety. Returns an empty string when the password is acceptable,
// otherwise a user-facing reason.
func PasswordStrength(s string) string {
	if len(s) < 8 {
		return "Password must be at least 8 characters long."
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return "Password must contain uppercase, lowercase and a digit."
	}
	return ""
}

// FileConstraints checks an upload name and size against a byte limit and an
// allowed extension list (extensions include the dot, lowercase). Returns an
// empty string when acceptable.
func FileConstraints(name string, size int64, maxBytes int64, allowedExt []string) string {
	if size > maxBytes {
		return fmt.Sprintf("File exceeds the maximum size of %d MB.", maxBytes/(1024*1024))
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowedExt {
		if ext == a {
			return ""
		}
	}
	return fmt.Sprintf("File type %q is not allowed.", ext)
}
