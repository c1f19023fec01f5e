package scheduler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/toparuz/marketsync/pkg/catalog"
	"github.com/toparuz/marketsync/pkg/logging"
)

// SharedCatalog wraps the local catalog fetcher shared by every pairing.
// Concurrent fetch requests coalesce onto one in-flight call, and the most
// recent non-empty snapshot is kept as a fallback for fetches that succeed
// with zero records (stale-but-available). A failed fetch is never cached.
type SharedCatalog struct {
	fetcher catalog.Fetcher
	group   singleflight.Group
	last    atomic.Pointer[[]catalog.Record]
}

// NewSharedCatalog wraps the given fetcher.
func NewSharedCatalog(fetcher catalog.Fetcher) *SharedCatalog {
	return &SharedCatalog{fetcher: fetcher}
}

// Name implements catalog.Fetcher.
func (c *SharedCatalog) Name() string {
	return c.fetcher.Name()
}

// Fetch implements catalog.Fetcher. Callers arriving while a fetch is in
// flight await that fetch's result instead of issuing a duplicate one.
func (c *SharedCatalog) Fetch(ctx context.Context) ([]catalog.Record, error) {
	v, err, shared := c.group.Do(c.fetcher.Name(), func() (any, error) {
		return c.fetchOnce(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.FromContext(ctx).Debug().
			Str("source", c.fetcher.Name()).
			Msg("Joined in-flight catalog fetch")
	}
	return v.([]catalog.Record), nil
}

// Snapshot returns the last-known-good catalog, or nil when no fetch has
// succeeded yet.
func (c *SharedCatalog) Snapshot() []catalog.Record {
	if snap := c.last.Load(); snap != nil {
		return *snap
	}
	return nil
}

// fetchOnce performs the underlying fetch and maintains the snapshot. The
// snapshot is replaced by swap, never mutated in place, so readers always
// see a complete catalog.
func (c *SharedCatalog) fetchOnce(ctx context.Context) ([]catalog.Record, error) {
	records, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		if prev := c.last.Load(); prev != nil {
			logging.FromContext(ctx).Warn().
				Str("source", c.fetcher.Name()).
				Int("cached", len(*prev)).
				Msg("Fetch returned zero records, serving last-known-good snapshot")
			return *prev, nil
		}
		return records, nil
	}

	snap := records
	c.last.Store(&snap)
	return records, nil
}
