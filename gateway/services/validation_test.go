// ABOUTME: Tests for forwarded path validation
// ABOUTME: Verifies traversal and injection attempts never reach the backend URL

package services

import "testing"

func TestValidatePath_ValidPaths(t *testing.T) {
	validPaths := []string{
		"",
		"jobs",
		"jobs/",
		"jobs/42/applications/",
		"auth/telegram/",
		"files/report%20final.pdf",
		"users/me",
	}

	for _, p := range validPaths {
		t.Run(p, func(t *testing.T) {
			if err := ValidatePath(p); err != nil {
				t.Errorf("ValidatePath(%q) returned error: %v, expected nil", p, err)
			}
		})
	}
}

func TestValidatePath_InvalidPaths(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../admin/"},
		{"nested traversal", "jobs/../../admin"},
		{"current dir segment", "jobs/./"},
		{"encoded traversal", "jobs/%2e%2e/admin"},
		{"mixed case encoded traversal", "%2E%2E/admin"},
		{"encoded slash", "jobs%2F..%2Fadmin"},
		{"backslash", `jobs\admin`},
		{"encoded backslash", "jobs%5Cadmin"},
		{"newline injection", "jobs\nmalicious"},
		{"encoded null byte", "jobs%00"},
		{"bad escape", "jobs%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePath(tt.path); err == nil {
				t.Errorf("ValidatePath(%q) returned nil, expected error", tt.path)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\r\nb\x00c\x7f"); got != "abc" {
		t.Errorf("sanitizeForLog = %q, want %q", got, "abc")
	}
}
