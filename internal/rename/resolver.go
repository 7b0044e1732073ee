// Package rename resolves name conflicts and moves files.
package rename

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Resolve returns desired when it is not among existing, otherwise the
// lowest base_N.ext (N >= 2) that is free. The extension is everything
// after the last dot.
func Resolve(desired string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		taken[e] = struct{}{}
	}
	return resolve(desired, taken)
}

func resolve(desired string, taken map[string]struct{}) string {
	if _, ok := taken[desired]; !ok {
		return desired
	}
	ext := filepath.Ext(desired)
	base := strings.TrimSuffix(desired, ext)
	for n := 2; ; n++ {
		candidate := base + "_" + strconv.Itoa(n) + ext
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// Claims tracks names handed out per directory during a run that does not
// touch the disk (dry-run), so two files planned into the same directory
// never receive the same final name. All methods are goroutine-safe.
type Claims struct {
	mu    sync.Mutex
	byDir map[string]map[string]string // dir -> name -> owner path
}

func NewClaims() *Claims {
	return &Claims{byDir: make(map[string]map[string]string)}
}

// resolveIn resolves desired against listing plus earlier claims in dir and
// claims the result for owner.
func (c *Claims) resolveIn(dir, owner, desired string, listing []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	taken := make(map[string]struct{}, len(listing))
	for _, n := range listing {
		taken[n] = struct{}{}
	}
	for n, o := range c.byDir[dir] {
		if o != owner {
			taken[n] = struct{}{}
		}
	}
	final := resolve(desired, taken)

	if c.byDir[dir] == nil {
		c.byDir[dir] = make(map[string]string)
	}
	c.byDir[dir][final] = owner
	return final
}
