package errors

import (
	"strings"
	"unicode"
)

// ValidateComponentName checks a component name before it is used as a
// deployment path segment. Names end up joined below the components
// directory, so traversal sequences and absolute paths are rejected.
//
// Forward slashes are allowed: nested names like "scope/inner" deploy
// into subdirectories.
func ValidateComponentName(name string) error {
	if name == "" {
		return New(EINVEP, "component name cannot be empty")
	}
	if len(name) > 256 {
		return New(EINVEP, "component name too long (max 256 characters)")
	}

	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(EINVEP, "component name contains control characters")
		}
	}

	if strings.HasPrefix(name, "/") {
		return New(EINVEP, "component name cannot be absolute")
	}
	for _, pattern := range []string{"..", "//", "\\"} {
		if strings.Contains(name, pattern) {
			return New(EINVEP, "component name contains invalid sequence %q", pattern)
		}
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." {
			return New(EINVEP, "component name has an empty path segment")
		}
	}
	return nil
}

// ValidateSourceURL checks a source address registered with a registry.
// Only transports the resolver stack can fetch are accepted.
func ValidateSourceURL(rawURL string) error {
	if rawURL == "" {
		return New(EINVEP, "source URL cannot be empty")
	}
	for _, scheme := range []string{"http://", "https://", "git://", "ssh://", "git@"} {
		if strings.HasPrefix(rawURL, scheme) {
			return nil
		}
	}
	return New(EINVEP, "source URL must use http, https, git or ssh")
}
