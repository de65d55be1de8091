package health

import (
	"context"
	"errors"
	"time"

	"github.com/cliniscribe/cliniscribe/internal/cache"
	"github.com/cliniscribe/cliniscribe/internal/dynrules"
)

// DynamicRules returns a checker that passes while the dynamic rule cache
// can serve a snapshot. A failing rule source only degrades correction
// quality, but surfacing it on /readyz lets operators notice before users
// report stale corrections.
func DynamicRules(c *dynrules.Cache) Checker {
	return Checker{
		Name: "dynamic_rules",
		Check: func(ctx context.Context) error {
			if _, ok := c.Snapshot(ctx); !ok {
				return errors.New("no rule snapshot available")
			}
			return nil
		},
	}
}

// ResultCache returns a checker that round-trips a probe key through the
// result cache.
func ResultCache(store cache.Cache) Checker {
	return Checker{
		Name: "result_cache",
		Check: func(ctx context.Context) error {
			const key = "health:probe"
			if err := store.Set(ctx, key, []byte("ok"), time.Minute); err != nil {
				return err
			}
			_, ok, err := store.Get(ctx, key)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("probe key not readable after write")
			}
			return nil
		},
	}
}
