package utils

import (
	"fmt"
	"sort"

	"github.com/yargevad/filepathx"
)

// ExpandGlobs resolves each pattern (with ** support) to regular files.
// Results keep pattern order, are deduplicated, and are sorted within a
// pattern. A pattern that matches nothing is an error.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		matches, err := filepathx.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)

		found := false
		for _, m := range matches {
			if !FileExists(m) {
				continue
			}
			found = true
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
		if !found {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
	}
	return out, nil
}
