package util

import (
	"fmt"
	"path"
	"strings"
)

// PrefixName turns a store prefix such as "Opening/" into a file-name safe
// label ("Opening"). Nested prefixes are joined with underscores.
func PrefixName(prefix string) string {
	return strings.ReplaceAll(strings.Trim(prefix, "/"), "/", "_")
}

// ArchiveName builds the local file name of a monthly archive, for example
// Opening_2025-12.zip.
func ArchiveName(prefix, month string) string {
	return fmt.Sprintf("%s_%s.zip", PrefixName(prefix), month)
}

// BuildObjectKey places a file name under a destination prefix.
func BuildObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// NormalizePrefix ensures a listing prefix ends with a slash so "Open" does
// not also match "OpeningOld/".
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
