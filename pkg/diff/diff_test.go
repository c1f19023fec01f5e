package diff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toparuz/marketsync/pkg/reconcile"
)

func rec(id string, lq, rq, lp, rp float64) reconcile.Record {
	return reconcile.Record{
		Identifier:     id,
		LocalQuantity:  lq,
		RemoteQuantity: rq,
		LocalPrice:     lp,
		RemotePrice:    rp,
	}
}

func TestSplit(t *testing.T) {
	records := []reconcile.Record{
		rec("both", 5, 3, 100, 90),
		rec("qty", 5, 3, 100, 100),
		rec("price", 5, 5, 100, 90),
		rec("match", 5, 5, 100, 100),
	}

	t.Run("buckets are exclusive and exhaustive", func(t *testing.T) {
		p := Split(records, Thresholds{})

		require.Len(t, p.Both, 1)
		require.Len(t, p.QuantityOnly, 1)
		require.Len(t, p.PriceOnly, 1)
		require.Len(t, p.Matches, 1)
		assert.Equal(t, "both", p.Both[0].Identifier)
		assert.Equal(t, "qty", p.QuantityOnly[0].Identifier)
		assert.Equal(t, "price", p.PriceOnly[0].Identifier)
		assert.Equal(t, "match", p.Matches[0].Identifier)

		assert.Equal(t, Summary{Total: 4, Both: 1, QuantityOnly: 1, PriceOnly: 1, Matches: 1}, p.Summary)
	})

	t.Run("thresholds absorb small differences", func(t *testing.T) {
		p := Split([]reconcile.Record{rec("r", 5, 5.5, 100, 104)}, Thresholds{Quantity: 1, Price: 5})
		assert.Len(t, p.Matches, 1)

		p = Split([]reconcile.Record{rec("r", 5, 6.5, 100, 106)}, Thresholds{Quantity: 1, Price: 5})
		assert.Len(t, p.Both, 1)
	})

	t.Run("difference exactly at threshold matches", func(t *testing.T) {
		p := Split([]reconcile.Record{rec("r", 5, 6, 100, 100)}, Thresholds{Quantity: 1})
		assert.Len(t, p.Matches, 1)
	})

	t.Run("non-finite values compare as zero", func(t *testing.T) {
		p := Split([]reconcile.Record{rec("r", math.NaN(), 0, math.Inf(1), 0)}, Thresholds{})
		assert.Len(t, p.Matches, 1)
	})

	t.Run("empty input", func(t *testing.T) {
		p := Split(nil, Thresholds{})
		assert.Equal(t, Summary{}, p.Summary)
		assert.Empty(t, p.Both)
	})
}

func TestFilter(t *testing.T) {
	records := []reconcile.Record{
		rec("both", 5, 3, 100, 90),
		rec("qty", 5, 3, 100, 100),
		rec("price", 5, 5, 100, 90),
		rec("match", 5, 5, 100, 100),
	}

	quantityDiffs, priceDiffs := Filter(records, Thresholds{})

	t.Run("record with both differences appears in both lists", func(t *testing.T) {
		require.Len(t, quantityDiffs, 2)
		require.Len(t, priceDiffs, 2)
		assert.Equal(t, "both", quantityDiffs[0].Identifier)
		assert.Equal(t, "qty", quantityDiffs[1].Identifier)
		assert.Equal(t, "both", priceDiffs[0].Identifier)
		assert.Equal(t, "price", priceDiffs[1].Identifier)
	})

	t.Run("consistent with the partition", func(t *testing.T) {
		p := Split(records, Thresholds{})
		assert.Equal(t, len(p.Both)+len(p.QuantityOnly), len(quantityDiffs))
		assert.Equal(t, len(p.Both)+len(p.PriceOnly), len(priceDiffs))
	})
}
