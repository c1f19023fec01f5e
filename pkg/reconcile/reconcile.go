// Package reconcile joins matched catalog records into a single comparable
// shape carrying both sides' quantity and price. Source-specific extraction
// rules (facility-scoped quantity sums, retail-price selection) have already
// run at the fetcher boundary; the join itself is a pure function.
package reconcile

import (
	"github.com/toparuz/marketsync/pkg/match"
)

// Record is the join of one matched (local, remote) pair.
type Record struct {
	// Identifier is the externally addressable id used for outbound
	// updates, taken from the remote side (e.g. the marketplace offer id).
	Identifier string

	// Barcode is carried through for display and persistence.
	Barcode string

	// Title is carried through for display only.
	Title string

	LocalQuantity  float64
	LocalPrice     float64
	RemoteQuantity float64
	RemotePrice    float64

	// LocalPriceAbsent records that the local source carried no usable
	// price entry, as opposed to a legitimate zero. The numeric zero
	// fallback keeps the record comparable; this flag keeps the two cases
	// distinguishable downstream.
	LocalPriceAbsent bool
}

// Merge combines each matched pair into a Record. A quantity or price that
// could not be derived on either side is treated as numeric zero so
// downstream diffing always has two comparable numbers.
func Merge(pairs []match.Pair) []Record {
	merged := make([]Record, 0, len(pairs))
	for _, p := range pairs {
		if p.Secondary.ExternalID == "" {
			// No addressable identifier means nothing downstream could
			// update; such records never become reconciled output.
			continue
		}

		rec := Record{
			Identifier:       p.Secondary.ExternalID,
			Title:            p.Secondary.Title,
			LocalQuantity:    p.Primary.QuantityOrZero(),
			LocalPrice:       p.Primary.PriceOrZero(),
			RemoteQuantity:   p.Secondary.QuantityOrZero(),
			RemotePrice:      p.Secondary.PriceOrZero(),
			LocalPriceAbsent: p.Primary.Price == nil,
		}
		if rec.Title == "" {
			rec.Title = p.Primary.Title
		}
		if len(p.Secondary.Barcodes) > 0 {
			rec.Barcode = p.Secondary.Barcodes[0]
		} else if len(p.Primary.Barcodes) > 0 {
			rec.Barcode = p.Primary.Barcodes[0]
		}

		merged = append(merged, rec)
	}
	return merged
}
