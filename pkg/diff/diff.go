// Package diff applies tolerance thresholds to reconciled records. It
// exposes two views over the same comparison: a four-way partition for
// reporting, and independent per-field lists for dispatch, which needs the
// subset of records whose quantity (or price) differs regardless of the
// other field.
package diff

import (
	"math"

	"github.com/toparuz/marketsync/pkg/reconcile"
)

// Thresholds holds the non-negative epsilons below which two values are
// considered equal. The zero value compares exactly.
type Thresholds struct {
	Quantity float64
	Price    float64
}

// Summary is the compact rollup of one partition.
type Summary struct {
	Total        int `json:"total"`
	Both         int `json:"both"`
	QuantityOnly int `json:"quantity_only"`
	PriceOnly    int `json:"price_only"`
	Matches      int `json:"matches"`
}

// Partition buckets reconciled records by which fields exceeded tolerance.
// The buckets are mutually exclusive; every input record lands in exactly
// one of them.
type Partition struct {
	Both         []reconcile.Record
	QuantityOnly []reconcile.Record
	PriceOnly    []reconcile.Record
	Matches      []reconcile.Record
	Summary      Summary
}

// Split partitions records into the four exclusive buckets.
func Split(records []reconcile.Record, t Thresholds) *Partition {
	p := &Partition{
		Both:         []reconcile.Record{},
		QuantityOnly: []reconcile.Record{},
		PriceOnly:    []reconcile.Record{},
		Matches:      []reconcile.Record{},
	}

	for _, rec := range records {
		qDiff := differs(rec.LocalQuantity, rec.RemoteQuantity, t.Quantity)
		pDiff := differs(rec.LocalPrice, rec.RemotePrice, t.Price)

		switch {
		case qDiff && pDiff:
			p.Both = append(p.Both, rec)
		case qDiff:
			p.QuantityOnly = append(p.QuantityOnly, rec)
		case pDiff:
			p.PriceOnly = append(p.PriceOnly, rec)
		default:
			p.Matches = append(p.Matches, rec)
		}
	}

	p.Summary = Summary{
		Total:        len(records),
		Both:         len(p.Both),
		QuantityOnly: len(p.QuantityOnly),
		PriceOnly:    len(p.PriceOnly),
		Matches:      len(p.Matches),
	}
	return p
}

// Filter returns the two independent per-field lists: records whose
// quantity differs and records whose price differs. A record with both
// differences appears in both lists, preserving input order.
func Filter(records []reconcile.Record, t Thresholds) (quantityDiffs, priceDiffs []reconcile.Record) {
	quantityDiffs = []reconcile.Record{}
	priceDiffs = []reconcile.Record{}
	for _, rec := range records {
		if differs(rec.LocalQuantity, rec.RemoteQuantity, t.Quantity) {
			quantityDiffs = append(quantityDiffs, rec)
		}
		if differs(rec.LocalPrice, rec.RemotePrice, t.Price) {
			priceDiffs = append(priceDiffs, rec)
		}
	}
	return quantityDiffs, priceDiffs
}

// differs reports whether a and b are further apart than eps. Non-finite
// inputs are coerced to zero before comparison, never rejected.
func differs(a, b, eps float64) bool {
	return math.Abs(finite(a)-finite(b)) > eps
}

// finite coerces NaN and infinities to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
