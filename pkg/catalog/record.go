// Package catalog defines the normalized product record shared by every
// source in the sync pipeline. Each fetcher converts its own wire shape into
// a Record at the boundary; downstream packages never probe source-specific
// field aliases.
package catalog

import "context"

// Record is the normalized view of one source's product or offer.
// Records are immutable once fetched and live for a single
// reconciliation cycle.
type Record struct {
	// ExternalID is the source-specific identifier: a Billz product id, a
	// Yandex offer id, or an Uzum SKU id. For marketplace records it is the
	// externally addressable id used for outbound updates.
	ExternalID string

	// Barcodes holds every barcode the source carried for this record, in
	// source order. Barcodes are case-sensitive symbol strings.
	Barcodes []string

	// SKU is the source's stock keeping unit, if any. It is stored raw;
	// NormalizeKey is applied when match keys are built.
	SKU string

	// Quantity is the available quantity, or nil when the source carried
	// none. Never negative.
	Quantity *float64

	// Price is the retail price, or nil when the source carried none or
	// only non-positive entries.
	Price *float64

	// Title is display-only and never participates in matching.
	Title string
}

// MatchKeys returns the record's candidate match keys in probe priority
// order: barcodes first, then the normalized SKU. Empty keys are omitted.
func (r *Record) MatchKeys() []string {
	keys := make([]string, 0, len(r.Barcodes)+1)
	for _, bc := range r.Barcodes {
		if k := NormalizeKey(bc); k != "" {
			keys = append(keys, k)
		}
	}
	if k := NormalizeKey(r.SKU); k != "" {
		keys = append(keys, k)
	}
	return keys
}

// QuantityOrZero returns the quantity, or zero when absent.
func (r *Record) QuantityOrZero() float64 {
	if r.Quantity == nil {
		return 0
	}
	return *r.Quantity
}

// PriceOrZero returns the price, or zero when absent.
func (r *Record) PriceOrZero() float64 {
	if r.Price == nil {
		return 0
	}
	return *r.Price
}

// Fetcher retrieves the complete current listing of one source as
// normalized records. Implementations paginate internally and must fail
// with a FetchError rather than silently returning a partial list.
type Fetcher interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Fetch returns a complete, finite snapshot of the source.
	Fetch(ctx context.Context) ([]Record, error)
}

// Float returns a pointer to v, for populating optional Record fields.
func Float(v float64) *float64 {
	return &v
}
