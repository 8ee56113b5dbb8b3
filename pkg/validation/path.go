// Package validation checks names that end up on disk or in registry paths.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Repository path components: lowercase alphanumerics joined by single
// separators, optionally nested with "/".
var repoNameRegex = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*(?:/[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*)*$`)

// Tags start with a word character and are at most 128 characters long.
var tagRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._-]{0,127}$`)

const MaxRepositoryNameLength = 255

// ValidateRepositoryName checks a repository path before it is pushed.
func ValidateRepositoryName(name string) error {
	if name == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if len(name) > MaxRepositoryNameLength {
		return fmt.Errorf("repository name too long: %d chars (max %d)", len(name), MaxRepositoryNameLength)
	}
	if !repoNameRegex.MatchString(name) {
		return fmt.Errorf("invalid repository name %q: must contain only lowercase letters, digits and separators", name)
	}
	return nil
}

// ValidateTag checks a tag before it is pushed.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag cannot be empty")
	}
	if !tagRegex.MatchString(tag) {
		return fmt.Errorf("invalid tag %q", tag)
	}
	return nil
}

// ValidateUploadName returns the base name of a client supplied filename and
// rejects anything that is not a plain "*.tar" name.
func ValidateUploadName(name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("filename contains a NUL byte")
	}
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "/" || base == "." || base == ".." {
		return "", fmt.Errorf("filename cannot be empty")
	}
	if !strings.EqualFold(filepath.Ext(base), ".tar") {
		return base, fmt.Errorf("only .tar files are accepted, got %q", base)
	}
	return base, nil
}

// ValidatePathWithinRoot checks that fullPath stays inside rootDir after cleaning.
func ValidatePathWithinRoot(rootDir, fullPath string) error {
	cleanRoot := filepath.Clean(rootDir)
	cleanPath := filepath.Clean(fullPath)

	if !strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator)) && cleanPath != cleanRoot {
		return fmt.Errorf("path escapes root directory")
	}
	return nil
}
