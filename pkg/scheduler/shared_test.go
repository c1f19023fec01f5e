package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toparuz/marketsync/pkg/catalog"
	"github.com/toparuz/marketsync/pkg/errors"
)

// countingFetcher returns scripted results and counts real fetches.
type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	results [][]catalog.Record
	err     error
	block   chan struct{}
}

func (f *countingFetcher) Name() string { return "billz" }

func (f *countingFetcher) Fetch(context.Context) ([]catalog.Record, error) {
	f.mu.Lock()
	f.calls++
	var out []catalog.Record
	if len(f.results) > 0 {
		out = f.results[0]
		f.results = f.results[1:]
	}
	err := f.err
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return out, err
}

func records(ids ...string) []catalog.Record {
	out := make([]catalog.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog.Record{ExternalID: id})
	}
	return out
}

func TestSharedCatalogCoalescesConcurrentFetches(t *testing.T) {
	block := make(chan struct{})
	fetcher := &countingFetcher{
		results: [][]catalog.Record{records("a"), records("a")},
		block:   block,
	}
	shared := NewSharedCatalog(fetcher)

	const callers = 4
	var wg sync.WaitGroup
	var fetched atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := shared.Fetch(context.Background())
			if err == nil && len(recs) == 1 {
				fetched.Add(1)
			}
		}()
	}

	close(block)
	wg.Wait()

	assert.Equal(t, int32(callers), fetched.Load())
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.Less(t, fetcher.calls, callers, "concurrent callers should coalesce")
}

func TestSharedCatalogServesStaleOnEmptyFetch(t *testing.T) {
	fetcher := &countingFetcher{results: [][]catalog.Record{records("a", "b"), {}}}
	shared := NewSharedCatalog(fetcher)

	first, err := shared.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := shared.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second, "empty fetch should serve the last-known-good snapshot")
}

func TestSharedCatalogNeverCachesErrors(t *testing.T) {
	fetcher := &countingFetcher{err: errors.ErrSourceUnavailable}
	shared := NewSharedCatalog(fetcher)

	_, err := shared.Fetch(context.Background())
	require.Error(t, err)
	assert.Nil(t, shared.Snapshot())

	_, err = shared.Fetch(context.Background())
	require.Error(t, err)
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.Equal(t, 2, fetcher.calls, "errors must not be cached")
}

func TestSharedCatalogEmptyWithoutSnapshot(t *testing.T) {
	fetcher := &countingFetcher{results: [][]catalog.Record{{}}}
	shared := NewSharedCatalog(fetcher)

	recs, err := shared.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}
