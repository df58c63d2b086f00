// ABOUTME: Input validation for forwarded paths
// ABOUTME: Keeps rewritten backend URLs inside the /api/ tree

package services

import (
	"fmt"
	"net/url"
	"strings"
)

// sanitizeForLog removes control characters from strings to prevent log injection
// when including user input in error messages
func sanitizeForLog(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1 // Remove control characters
		}
		return r
	}, s)
}

// ValidatePath checks an escaped path relative to /api/ before it is joined
// onto the backend origin. Dot segments (plain or percent-encoded),
// backslashes and control characters are rejected.
func ValidatePath(escaped string) error {
	if sanitizeForLog(escaped) != escaped {
		return fmt.Errorf("invalid path: control characters in %q", sanitizeForLog(escaped))
	}
	if strings.Contains(escaped, `\`) {
		return fmt.Errorf("invalid path: backslash in %s", escaped)
	}
	for _, segment := range strings.Split(escaped, "/") {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			return fmt.Errorf("invalid path: bad escape in %s", escaped)
		}
		if decoded == "." || decoded == ".." {
			return fmt.Errorf("invalid path: dot segment in %s", escaped)
		}
		if sanitizeForLog(decoded) != decoded {
			return fmt.Errorf("invalid path: encoded control character in %s", escaped)
		}
		if strings.ContainsAny(decoded, `/\`) {
			return fmt.Errorf("invalid path: encoded separator in %s", escaped)
		}
	}
	return nil
}
