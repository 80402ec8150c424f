package source

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns match controller assets anywhere under the source root.
var DefaultPatterns = []string{"**/*.controller", "**/*.controller.yaml", "**/*.controller.yml"}

// Discover walks fsys and returns the files matching any of patterns, in
// sorted order. Matching ignores case. Hidden directories are skipped.
func Discover(fsys fs.FS, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("source: invalid pattern %q", p)
		}
	}

	var found []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		lower := strings.ToLower(p)
		for _, pattern := range patterns {
			ok, err := doublestar.Match(strings.ToLower(pattern), lower)
			if err != nil {
				return err
			}
			if ok {
				found = append(found, p)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: discover: %w", err)
	}

	sort.Strings(found)
	return found, nil
}

func isControllerFile(p string) bool {
	lower := strings.ToLower(p)
	for _, ext := range []string{".controller", ".controller.yaml", ".controller.yml"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
