package loader

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// moduleExt is the filename extension of loadable native plugin modules.
// The Go toolchain emits .so for -buildmode=plugin on every supported
// platform.
const moduleExt = ".so"

// discover enumerates candidate module paths from an ordered list of
// locations. Each location is either a directory, whose module files are
// taken in name order, or an explicit module path. Duplicate and
// non-existent locations are tolerated and skipped.
func discover(locations []string) []string {
	seen := make(map[string]bool)
	var candidates []string

	add := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		candidates = append(candidates, path)
	}

	for _, loc := range locations {
		info, err := os.Stat(loc)
		if err != nil {
			Logger().Debug("skipping inaccessible scan location",
				zap.String("location", loc), zap.Error(err))
			continue
		}

		if !info.IsDir() {
			add(loc)
			continue
		}

		entries, err := os.ReadDir(loc)
		if err != nil {
			Logger().Debug("skipping unreadable scan directory",
				zap.String("location", loc), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), moduleExt) {
				continue
			}
			add(filepath.Join(loc, e.Name()))
		}
	}

	return candidates
}
