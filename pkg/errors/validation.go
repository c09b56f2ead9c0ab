package errors

import (
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name before it is used as a path
// component under a module directory.
//
// The validation rules are intentionally conservative:
//   - No empty names, "." or absolute names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes or backslashes
//   - Maximum length of 256 characters
//
// A slash is only allowed in the scoped form "@scope/pkg".
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	if name == "." || strings.HasPrefix(name, "/") {
		return New(ErrCodeInvalidPackage, "package name cannot be %q", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	if strings.Contains(name, "/") {
		scope, pkg, _ := strings.Cut(name, "/")
		if !strings.HasPrefix(scope, "@") || len(scope) < 2 || pkg == "" || strings.Contains(pkg, "/") {
			return New(ErrCodeInvalidPackage, "package name %q: a slash is only allowed in @scope/name", name)
		}
	}

	return nil
}

// ValidateDirName validates the name of a module directory (e.g. "node_modules").
// It must be a simple basename without path components.
func ValidateDirName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "directory name cannot be empty")
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidConfig, "directory name cannot contain path separators")
	}

	if name == "." || name == ".." {
		return New(ErrCodeInvalidConfig, "directory name cannot be %q", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "directory name contains invalid control characters")
		}
	}

	return nil
}
