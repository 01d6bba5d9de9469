// Package security guards the file paths the CLI writes exports to.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a path resolves outside its base directory.
var ErrPathEscape = errors.New("path escapes base directory")

// maxNameLen bounds sanitised file name components.
const maxNameLen = 96

// ValidatePathWithinDirectory reports an error unless filePath, with
// symlinks resolved, lies inside baseDir. filePath need not exist yet: the
// nearest existing ancestor is resolved instead, so a symlinked parent
// cannot redirect a new file outside baseDir.
func ValidatePathWithinDirectory(filePath, baseDir string) error {
	base, err := canonical(baseDir)
	if err != nil {
		return fmt.Errorf("resolve base directory %s: %w", baseDir, err)
	}
	target, err := canonical(filePath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", filePath, err)
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return fmt.Errorf("%s: %w", filePath, ErrPathEscape)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%s is outside %s: %w", filePath, baseDir, ErrPathEscape)
	}
	return nil
}

// canonical returns the absolute, symlink-free form of path. Missing
// trailing components are appended to the resolved existing ancestor.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	var missing []string
	for dir := abs; ; {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		missing = append(missing, filepath.Base(dir))
		dir = parent
	}
}

// SanitizeFilename turns a session or driver identifier into a file name
// component. Runs of characters other than ASCII letters, digits, dot,
// underscore and dash become one underscore; leading and trailing dots
// and underscores are trimmed.
func SanitizeFilename(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	if out := strings.Trim(b.String(), "._"); out != "" {
		return out
	}
	return "unknown"
}

// OutputPath joins sanitised name parts with "_", appends ext and places
// the result in dir. The returned path is checked against dir.
func OutputPath(dir, ext string, parts ...string) (string, error) {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = SanitizeFilename(p)
	}
	path := filepath.Join(dir, strings.Join(names, "_")+ext)
	if err := ValidatePathWithinDirectory(path, dir); err != nil {
		return "", err
	}
	return path, nil
}
