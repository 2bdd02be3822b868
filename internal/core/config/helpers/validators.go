package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]{}")
}

func IsPathOverlap(a, b string) bool {
	if a == b {
		return true
	}
	if strings.HasPrefix(a, b+string(os.PathSeparator)) {
		return true
	}
	if strings.HasPrefix(b, a+string(os.PathSeparator)) {
		return true
	}
	return false
}

// CleanDir normalizes a configured directory for overlap checks.
func CleanDir(dir string) string {
	return filepath.Clean(strings.TrimSpace(dir))
}

// ValidateGlob reports whether pattern compiles as an exclude glob.
func ValidateGlob(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty pattern")
	}
	if !HasWildcard(pattern) {
		return nil
	}
	if _, err := glob.Compile(pattern); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return nil
}
