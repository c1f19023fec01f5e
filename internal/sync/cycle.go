// Package sync runs one reconciliation cycle per marketplace pairing: fetch
// both catalogs, match, merge, diff, dispatch the updates, and persist what
// the local catalog does not carry. Each stage lives in its own package;
// this one only wires them in order and rolls the outcome into a Summary.
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/toparuz/marketsync/internal/store"
	"github.com/toparuz/marketsync/pkg/catalog"
	"github.com/toparuz/marketsync/pkg/diff"
	"github.com/toparuz/marketsync/pkg/dispatch"
	"github.com/toparuz/marketsync/pkg/logging"
	"github.com/toparuz/marketsync/pkg/match"
	"github.com/toparuz/marketsync/pkg/reconcile"
)

// Store is the subset of the persistence layer a cycle needs.
type Store interface {
	UpsertProducts(ctx context.Context, products []store.Product) (store.UpsertResult, error)
	StartRun(ctx context.Context, id, pairing string) (*store.RunLog, error)
	CompleteRun(ctx context.Context, id, status string, processed, failed int, errMsg string) error
}

// Pairing binds one local catalog to one marketplace and carries everything
// a cycle between them needs.
type Pairing struct {
	Name string

	// Local is the authoritative catalog; Remote is the marketplace view.
	Local  catalog.Fetcher
	Remote catalog.Fetcher

	// Quantity and Price deliver the respective updates. A nil Price means
	// the marketplace exposes no price update API and price dispatch is
	// skipped entirely.
	Quantity *dispatch.Dispatcher
	Price    *dispatch.Dispatcher

	Thresholds diff.Thresholds

	// Store persists marketplace-only products and run logs. Nil disables
	// persistence; the cycle itself never requires it.
	Store Store
}

// DispatchStats is the compact rollup of one dispatch call.
type DispatchStats struct {
	Batches int            `json:"batches"`
	Sent    int            `json:"sent"`
	Failed  int            `json:"failed"`
	Skips   dispatch.Skips `json:"skips"`
}

func statsOf(res *dispatch.Result) DispatchStats {
	if res == nil {
		return DispatchStats{}
	}
	return DispatchStats{
		Batches: res.BatchCount,
		Sent:    res.Sent,
		Failed:  len(res.Failed),
		Skips:   res.Skips,
	}
}

// Summary is the outcome of one cycle, published for inspection and folded
// into the run log.
type Summary struct {
	Pairing string `json:"pairing"`
	RunID   string `json:"run_id"`

	LocalTotal     int `json:"local_total"`
	RemoteTotal    int `json:"remote_total"`
	MergedTotal    int `json:"merged_total"`
	UnmatchedCount int `json:"unmatched_count"`

	Diff diff.Summary `json:"diff"`

	Quantity DispatchStats `json:"quantity"`
	Price    DispatchStats `json:"price"`

	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Error       string    `json:"error,omitempty"`
}

// QuantityDiffCount returns how many merged records diverged on quantity.
func (s *Summary) QuantityDiffCount() int {
	return s.Diff.Both + s.Diff.QuantityOnly
}

// PriceDiffCount returns how many merged records diverged on price.
func (s *Summary) PriceDiffCount() int {
	return s.Diff.Both + s.Diff.PriceOnly
}

// FailedBatches returns the number of batches that exhausted retries across
// both dispatch channels.
func (s *Summary) FailedBatches() int {
	return s.Quantity.Failed + s.Price.Failed
}

// RunCycle executes one full reconciliation cycle. Fetch failures abort the
// cycle; dispatch and persistence failures are recorded in the summary and
// never stop the remaining stages.
func (p *Pairing) RunCycle(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		Pairing:   p.Name,
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := logging.FromContext(ctx)
	log.Info().Str("run_id", summary.RunID).Msg("Cycle started")

	if p.Store != nil {
		if _, err := p.Store.StartRun(ctx, summary.RunID, p.Name); err != nil {
			log.Warn().Err(err).Msg("Run log write failed")
		}
	}

	local, remote, err := p.fetchBoth(ctx)
	if err != nil {
		summary.CompletedAt = time.Now()
		summary.Error = err.Error()
		p.completeRun(ctx, summary, store.StatusFailed)
		return summary, err
	}
	summary.LocalTotal = len(local)
	summary.RemoteTotal = len(remote)

	matched := match.Match(local, remote)
	merged := reconcile.Merge(matched.Matched)
	summary.MergedTotal = len(merged)
	summary.UnmatchedCount = len(matched.Unmatched)

	part := diff.Split(merged, p.Thresholds)
	summary.Diff = part.Summary
	quantityDiffs, priceDiffs := diff.Filter(merged, p.Thresholds)

	if p.Quantity != nil && len(quantityDiffs) > 0 {
		summary.Quantity = statsOf(p.Quantity.Dispatch(ctx, quantityItems(quantityDiffs)))
	}
	if p.Price != nil && len(priceDiffs) > 0 {
		summary.Price = statsOf(p.Price.Dispatch(ctx, priceItems(priceDiffs)))
	}

	if p.Store != nil && len(matched.Unmatched) > 0 {
		res, err := p.Store.UpsertProducts(ctx, unmatchedProducts(p.Remote.Name(), matched.Unmatched))
		if err != nil {
			log.Error().Err(err).Msg("Unmatched persistence failed")
		} else {
			summary.Inserted = res.Inserted
			summary.Updated = res.Updated
		}
	}

	summary.CompletedAt = time.Now()
	status := store.StatusSuccess
	if summary.FailedBatches() > 0 {
		status = store.StatusFailed
	}
	p.completeRun(ctx, summary, status)

	log.Info().
		Str("run_id", summary.RunID).
		Int("merged", summary.MergedTotal).
		Int("unmatched", summary.UnmatchedCount).
		Int("quantity_diffs", summary.QuantityDiffCount()).
		Int("price_diffs", summary.PriceDiffCount()).
		Int("quantity_sent", summary.Quantity.Sent).
		Int("price_sent", summary.Price.Sent).
		Int("failed_batches", summary.FailedBatches()).
		Dur("elapsed", summary.CompletedAt.Sub(summary.StartedAt)).
		Msg("Cycle finished")
	return summary, nil
}

// fetchBoth retrieves the two catalogs concurrently. Either failure cancels
// the other fetch and aborts the cycle.
func (p *Pairing) fetchBoth(ctx context.Context) (local, remote []catalog.Record, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var ferr error
		local, ferr = p.Local.Fetch(gctx)
		return ferr
	})
	g.Go(func() error {
		var ferr error
		remote, ferr = p.Remote.Fetch(gctx)
		return ferr
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return local, remote, nil
}

// quantityItems maps quantity-divergent records onto dispatch items. The
// local quantity is authoritative and pushed as is, zeros included.
func quantityItems(records []reconcile.Record) []dispatch.Item {
	items := make([]dispatch.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, dispatch.Item{ID: rec.Identifier, Value: rec.LocalQuantity})
	}
	return items
}

// priceItems maps price-divergent records onto dispatch items. A positive
// local price wins; otherwise the current remote price is re-sent so the
// listing keeps a sane value; with neither, the item carries the absence
// marker and the dispatcher skips it.
func priceItems(records []reconcile.Record) []dispatch.Item {
	items := make([]dispatch.Item, 0, len(records))
	for _, rec := range records {
		it := dispatch.Item{ID: rec.Identifier}
		switch {
		case rec.LocalPrice > 0:
			it.Value = rec.LocalPrice
		case rec.RemotePrice > 0:
			it.Value = rec.RemotePrice
		default:
			it.Value = rec.LocalPrice
			it.PriceAbsent = rec.LocalPriceAbsent
		}
		items = append(items, it)
	}
	return items
}

// unmatchedProducts maps marketplace records absent from the local catalog
// onto persistable products.
func unmatchedProducts(source string, records []catalog.Record) []store.Product {
	products := make([]store.Product, 0, len(records))
	for _, rec := range records {
		if rec.ExternalID == "" {
			continue
		}
		p := store.Product{
			SKUID:  rec.ExternalID,
			Title:  rec.Title,
			Amount: rec.QuantityOrZero(),
			Price:  rec.PriceOrZero(),
			Source: source,
		}
		if len(rec.Barcodes) > 0 {
			p.Barcode = rec.Barcodes[0]
		}
		products = append(products, p)
	}
	return products
}

// completeRun finalizes the run log record; failures are logged, never
// propagated.
func (p *Pairing) completeRun(ctx context.Context, s *Summary, status string) {
	if p.Store == nil {
		return
	}
	processed := s.Quantity.Sent + s.Price.Sent
	if err := p.Store.CompleteRun(ctx, s.RunID, status, processed, s.FailedBatches(), s.Error); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Run log update failed")
	}
}
