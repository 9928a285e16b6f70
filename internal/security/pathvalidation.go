// Package security guards the paths that step exports are written to.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a path resolves outside every allowed
// directory.
var ErrPathEscape = errors.New("path escapes allowed directories")

// canonical returns the absolute form of p with symlinks resolved. When p
// does not exist yet, the deepest existing ancestor is resolved and the
// remaining components are re-joined, so a symlinked parent cannot smuggle
// a new file outside its directory.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// ValidatePathWithinDirectory returns nil when filePath resolves to dir or
// somewhere beneath it.
func ValidatePathWithinDirectory(filePath, dir string) error {
	target, err := canonical(filePath)
	if err != nil {
		return err
	}
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("resolve directory %q: %w", dir, err)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve directory %q: %w", dir, err)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%s outside %s: %w", filePath, dir, ErrPathEscape)
	}
	return nil
}

// ValidatePathWithinAllowedDirs accepts filePath if it lies within any of
// allowedDirs.
func ValidatePathWithinAllowedDirs(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories for %s: %w", filePath, ErrPathEscape)
	}
	for _, dir := range allowedDirs {
		if ValidatePathWithinDirectory(filePath, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("%s not within %v: %w", filePath, allowedDirs, ErrPathEscape)
}

// ValidateExportPath checks an export destination (CSV, PNG, HTML, SQLite).
// The working directory and the temp directory are always allowed; extra
// adds more roots.
func ValidateExportPath(filePath string, extra ...string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	allowed := append([]string{cwd, os.TempDir()}, extra...)
	return ValidatePathWithinAllowedDirs(filePath, allowed)
}

// SanitizeFilename reduces s to ASCII letters, digits, dot, underscore and
// dash, collapsing other runs into a single underscore. Used to build
// download names from session identifiers.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			if !pendingUnderscore {
				b.WriteByte('_')
				pendingUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		pendingUnderscore = false
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
