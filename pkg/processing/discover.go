package processing

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveTemplates expands glob patterns in the template list. Plain paths
// are kept as given, even when missing, so that reading them fails at
// their own step. Each pattern's matches are sorted; a pattern matching
// nothing is an error.
func ResolveTemplates(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			paths = append(paths, pattern)
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %q matched no templates", pattern)
		}
		slices.Sort(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

func hasMeta(pattern string) bool {
	return slices.ContainsFunc([]rune(filepath.ToSlash(pattern)), func(r rune) bool {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
		return false
	})
}
