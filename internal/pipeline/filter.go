package pipeline

import (
	"path/filepath"
	"strings"
)

// ShouldIgnore reports whether any segment of path matches one of the glob
// patterns in ignoreList.
func ShouldIgnore(path string, ignoreList []string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")

	for _, part := range parts {
		for _, pattern := range ignoreList {
			matched, err := filepath.Match(pattern, part)
			if err == nil && matched {
				return true
			}
		}
	}

	return false
}

// FilterPaths returns the paths that are not ignored, in order.
func FilterPaths(paths []string, ignoreList []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !ShouldIgnore(p, ignoreList) {
			out = append(out, p)
		}
	}

	return out
}
