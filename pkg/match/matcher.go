// Package match resolves identity between two catalogs joined by imperfect
// shared keys. An index is built over the primary catalog and each secondary
// record probes it with its own keys in priority order; records that resolve
// nowhere land in the unmatched set, which is an output, not an error.
package match

import (
	"github.com/toparuz/marketsync/pkg/catalog"
)

// Index maps a normalized match key to the first primary record seen
// carrying it. First occurrence wins on duplicate keys within one source,
// which keeps matching deterministic when two products share a barcode.
type Index map[string]*catalog.Record

// NewIndex builds an index over every match key of the given records.
func NewIndex(records []catalog.Record) Index {
	idx := make(Index, len(records))
	for i := range records {
		for _, key := range records[i].MatchKeys() {
			if _, exists := idx[key]; !exists {
				idx[key] = &records[i]
			}
		}
	}
	return idx
}

// Lookup probes the index with the record's match keys in priority order
// (barcodes before normalized SKU) and returns the first hit.
func (idx Index) Lookup(r *catalog.Record) (*catalog.Record, bool) {
	for _, key := range r.MatchKeys() {
		if hit, ok := idx[key]; ok {
			return hit, true
		}
	}
	return nil, false
}

// Pair is one resolved (primary, secondary) match.
type Pair struct {
	Primary   *catalog.Record
	Secondary catalog.Record
}

// Result carries the resolved pairs and the secondary records that matched
// nothing. len(Matched)+len(Unmatched) == len(secondary) always holds.
type Result struct {
	Matched   []Pair
	Unmatched []catalog.Record
}

// Match resolves each secondary record against the primary catalog,
// returning zero or one primary match per secondary record.
func Match(primary, secondary []catalog.Record) Result {
	idx := NewIndex(primary)

	res := Result{
		Matched:   make([]Pair, 0, len(secondary)),
		Unmatched: []catalog.Record{},
	}
	for _, rec := range secondary {
		if hit, ok := idx.Lookup(&rec); ok {
			res.Matched = append(res.Matched, Pair{Primary: hit, Secondary: rec})
		} else {
			res.Unmatched = append(res.Unmatched, rec)
		}
	}
	return res
}
