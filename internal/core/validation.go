// internal/core/validation.go
package core

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// CSV table names: lowercase letter first, then lowercase letters, digits or underscore.
var csvTableNameRegex = regexp.MustCompile(`^([a-z])[a-z0-9_]+$`)

// Any table name without a schema separator.
var unqualifiedNameRegex = regexp.MustCompile(`^[^.]+$`)

// IsValidCSVTableName checks the strict naming rule applied to tables created from CSV files.
func IsValidCSVTableName(name string) bool {
	return csvTableNameRegex.MatchString(name)
}

// IsUnqualifiedName reports whether name is non-empty and carries no schema prefix.
func IsUnqualifiedName(name string) bool {
	return unqualifiedNameRegex.MatchString(name)
}

// FileExtension returns the lowercased extension of a file name without the dot.
func FileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IntersectExtensions returns the sorted, lowercased extensions present in both sets.
func IntersectExtensions(allowed, format []string) []string {
	global := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		global[normalizeExtension(ext)] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, ext := range format {
		e := normalizeExtension(ext)
		if global[e] && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
