package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// collectNumbered finds dir/prefix<N>suffix files and returns them ordered
// by N numerically, so page-10 sorts after page-9.
func collectNumbered(dir, prefix, suffix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*"+suffix))
	if err != nil {
		return nil, err
	}
	type numbered struct {
		n    int
		path string
	}
	var found []numbered
	for _, m := range matches {
		mid := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), suffix)
		n, err := strconv.Atoi(mid)
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, path: m})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.path
	}
	return out, nil
}

// renameSequential moves paths to dir/<pattern % i> for i starting at 1.
func renameSequential(paths []string, dir, pattern string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for i, p := range paths {
		target := filepath.Join(dir, fmt.Sprintf(pattern, i+1))
		if p != target {
			if err := os.Rename(p, target); err != nil {
				return nil, err
			}
		}
		out = append(out, target)
	}
	return out, nil
}
