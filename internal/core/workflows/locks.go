package workflows

import (
	"context"
	"fmt"

	"github.com/marwanAmeen/beeline-server/internal/core/ports"
)

// acquireLocks locks every key in order, releasing whatever it already
// acquired if any later key fails, so a workflow guarding several trip
// legs never holds a partial set of locks. The returned release func
// unlocks all of them in reverse acquisition order.
func acquireLocks(ctx context.Context, locker ports.Locker, keys []string) (release func(context.Context) error, err error) {
	releases := make([]func(context.Context) error, 0, len(keys))
	releaseAll := func(ctx context.Context) error {
		for i := len(releases) - 1; i >= 0; i-- {
			_ = releases[i](ctx)
		}
		return nil
	}
	for _, key := range keys {
		r, err := locker.Lock(ctx, key)
		if err != nil {
			releaseAll(ctx)
			return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		releases = append(releases, r)
	}
	return releaseAll, nil
}

// dedupeKeys returns keys with duplicates removed, preserving first-seen
// order so lock acquisition order stays deterministic.
func dedupeKeys(keys []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
