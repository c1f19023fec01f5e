// Package dispatch groups outbound update items into size-bounded batches
// and delivers them sequentially with bounded exponential-backoff retry.
// Batches are never sent concurrently: marketplace rate limits take
// precedence over throughput. A failed batch is recorded and never blocks
// the batches after it.
package dispatch

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/logging"
)

// Item is one outbound update payload entry: the target identifier and the
// value to push (a quantity or a price, depending on the sender).
type Item struct {
	ID    string
	Value float64

	// PriceAbsent marks an item whose authoritative price was never
	// derived. Such items are skipped and counted separately from
	// legitimately non-positive values.
	PriceAbsent bool
}

// Sender delivers one batch of items to an external system. Implementations
// map items onto their wire payload; errors carrying a 429 or 5xx status
// (via errors.IsRetryable) are retried, everything else is terminal.
type Sender interface {
	// Target identifies the external system in logs and failures.
	Target() string

	// SendBatch performs one synchronous outbound call.
	SendBatch(ctx context.Context, items []Item) error
}

// Options configure a Dispatcher. Zero fields fall back to defaults.
type Options struct {
	// BatchSize bounds every batch. Default 500.
	BatchSize int

	// MaxAttempts bounds retries per batch, counting the first try.
	// Default 3.
	MaxAttempts int

	// BaseDelay is the first retry delay; attempt n waits
	// BaseDelay * 2^(n-1). Default 500ms.
	BaseDelay time.Duration

	// BatchPause is the fixed pause between successive batches regardless
	// of outcome. Default 100ms.
	BatchPause time.Duration

	// RequirePositive skips items with a non-positive value. Price updates
	// set this: a zero or negative price signals missing data, not an
	// intentional price.
	RequirePositive bool
}

// Defaults mirror the marketplace limits the original deployment ran with.
const (
	DefaultBatchSize   = 500
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultBatchPause  = 100 * time.Millisecond
)

// Skips counts records discarded during payload validation. Nothing is
// skipped silently; the counts surface in the cycle summary.
type Skips struct {
	MissingID        int `json:"missing_id"`
	NonFinite        int `json:"non_finite"`
	NonPositive      int `json:"non_positive"`
	AbsentPrice      int `json:"absent_price"`
	DedupOverwritten int `json:"dedup_overwritten"`
}

// Total returns the number of records that never made it into a batch,
// not counting dedup overwrites (those are replaced, not dropped).
func (s Skips) Total() int {
	return s.MissingID + s.NonFinite + s.NonPositive + s.AbsentPrice
}

// BatchFailure records one batch that exhausted retries or hit a terminal
// client error.
type BatchFailure struct {
	Batch int   `json:"batch"` // 1-based index
	Size  int   `json:"size"`
	Err   error `json:"-"`
}

// Result aggregates per-batch outcomes of one dispatch call.
type Result struct {
	BatchCount int
	Succeeded  []int // 1-based indices of batches that were delivered
	Failed     []BatchFailure
	Skips      Skips
	Sent       int // items delivered in succeeded batches
}

// Dispatcher sends validated, deduplicated, batched updates to one target.
type Dispatcher struct {
	sender Sender
	opts   Options

	// sleep is swappable in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Dispatcher for the given sender.
func New(sender Sender, opts Options) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = DefaultBatchPause
	}
	return &Dispatcher{
		sender: sender,
		opts:   opts,
		sleep:  sleepContext,
	}
}

// Dispatch validates, deduplicates, batches and sends the given items.
// It returns per-batch outcomes; the only error paths are context
// cancellation, which surfaces inside the failed-batches list.
func (d *Dispatcher) Dispatch(ctx context.Context, items []Item) *Result {
	res := &Result{Succeeded: []int{}, Failed: []BatchFailure{}}

	valid := d.validate(items, &res.Skips)
	unique := dedupe(valid, &res.Skips)
	batches := chunk(unique, d.opts.BatchSize)
	res.BatchCount = len(batches)

	log := logging.FromContext(ctx)
	for i, batch := range batches {
		if err := d.sendWithRetries(ctx, i+1, batch); err != nil {
			log.Error().
				Err(err).
				Str("target", d.sender.Target()).
				Int("batch", i+1).
				Int("batches", len(batches)).
				Msg("Batch failed")
			res.Failed = append(res.Failed, BatchFailure{Batch: i + 1, Size: len(batch), Err: err})
		} else {
			log.Info().
				Str("target", d.sender.Target()).
				Int("batch", i+1).
				Int("batches", len(batches)).
				Int("items", len(batch)).
				Msg("Batch delivered")
			res.Succeeded = append(res.Succeeded, i+1)
			res.Sent += len(batch)
		}

		// Fixed pause between batches regardless of outcome, to smooth
		// request bursts.
		if i < len(batches)-1 {
			if err := d.sleep(ctx, d.opts.BatchPause); err != nil {
				remaining := batches[i+1:]
				for j, rest := range remaining {
					res.Failed = append(res.Failed, BatchFailure{Batch: i + 2 + j, Size: len(rest), Err: err})
				}
				break
			}
		}
	}

	return res
}

// validate maps records to payload items, discarding those without a target
// identifier or with unusable values, and counts every skip.
func (d *Dispatcher) validate(items []Item, skips *Skips) []Item {
	valid := make([]Item, 0, len(items))
	for _, it := range items {
		switch {
		case it.ID == "":
			skips.MissingID++
		case math.IsNaN(it.Value) || math.IsInf(it.Value, 0):
			skips.NonFinite++
		case d.opts.RequirePositive && it.PriceAbsent:
			skips.AbsentPrice++
		case d.opts.RequirePositive && it.Value <= 0:
			skips.NonPositive++
		default:
			valid = append(valid, it)
		}
	}
	return valid
}

// sendWithRetries sends one batch with a bounded retry loop. Attempt n
// waits BaseDelay * 2^(n-1) before resending; only rate-limit and
// server-error responses are retried.
func (d *Dispatcher) sendWithRetries(ctx context.Context, batchNum int, batch []Item) error {
	var err error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		err = d.sender.SendBatch(ctx, batch)
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) || attempt == d.opts.MaxAttempts {
			return &errors.DispatchError{
				Target:     d.sender.Target(),
				Batch:      batchNum,
				Attempts:   attempt,
				StatusCode: statusOf(err),
				Err:        err,
			}
		}

		delay := d.opts.BaseDelay * time.Duration(1<<(attempt-1))
		logging.FromContext(ctx).Warn().
			Err(err).
			Str("target", d.sender.Target()).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying batch")
		if sleepErr := d.sleep(ctx, delay); sleepErr != nil {
			return &errors.DispatchError{
				Target:   d.sender.Target(),
				Batch:    batchNum,
				Attempts: attempt,
				Err:      sleepErr,
			}
		}
	}
	return err
}

// dedupe collapses items sharing an identifier; the last occurrence in
// input order wins, keeping the position of the first.
func dedupe(items []Item, skips *Skips) []Item {
	pos := make(map[string]int, len(items))
	unique := make([]Item, 0, len(items))
	for _, it := range items {
		if at, seen := pos[it.ID]; seen {
			unique[at] = it
			skips.DedupOverwritten++
			continue
		}
		pos[it.ID] = len(unique)
		unique = append(unique, it)
	}
	return unique
}

// chunk splits items into consecutive batches no larger than size.
func chunk(items []Item, size int) [][]Item {
	if len(items) == 0 {
		return nil
	}
	batches := make([][]Item, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

// statusOf extracts the HTTP status from an APIError, if any.
func statusOf(err error) int {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
