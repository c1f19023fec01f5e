package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toparuz/marketsync/pkg/catalog"
)

func TestNewIndex(t *testing.T) {
	t.Run("indexes every key of every record", func(t *testing.T) {
		idx := NewIndex([]catalog.Record{
			{ExternalID: "p1", Barcodes: []string{"111", "222"}, SKU: "19641"},
		})
		assert.Len(t, idx, 3)
		assert.Equal(t, "p1", idx["111"].ExternalID)
		assert.Equal(t, "p1", idx["222"].ExternalID)
		assert.Equal(t, "p1", idx["19641"].ExternalID)
	})

	t.Run("first record wins duplicate keys", func(t *testing.T) {
		idx := NewIndex([]catalog.Record{
			{ExternalID: "first", Barcodes: []string{"111"}},
			{ExternalID: "second", Barcodes: []string{"111"}},
		})
		assert.Equal(t, "first", idx["111"].ExternalID)
	})

	t.Run("numeric sku variants collide", func(t *testing.T) {
		idx := NewIndex([]catalog.Record{
			{ExternalID: "p1", SKU: "19641.0"},
		})
		hit, ok := idx.Lookup(&catalog.Record{SKU: " 19641 "})
		require.True(t, ok)
		assert.Equal(t, "p1", hit.ExternalID)
	})
}

func TestLookupPriority(t *testing.T) {
	// Two primary records: one reachable by barcode, one by SKU. A probe
	// carrying both keys must resolve through the barcode.
	idx := NewIndex([]catalog.Record{
		{ExternalID: "by-barcode", Barcodes: []string{"111"}},
		{ExternalID: "by-sku", SKU: "555"},
	})

	hit, ok := idx.Lookup(&catalog.Record{Barcodes: []string{"111"}, SKU: "555"})
	require.True(t, ok)
	assert.Equal(t, "by-barcode", hit.ExternalID)
}

func TestMatch(t *testing.T) {
	primary := []catalog.Record{
		{ExternalID: "A1", Barcodes: []string{"4780000000000"}, SKU: "19641"},
		{ExternalID: "A2", Barcodes: []string{"4780000000017"}},
	}

	t.Run("partitions secondary records completely", func(t *testing.T) {
		secondary := []catalog.Record{
			{ExternalID: "X1", Barcodes: []string{"4780000000000"}},
			{ExternalID: "X2", SKU: "19641.0"},
			{ExternalID: "X3", Barcodes: []string{"nope"}},
		}
		res := Match(primary, secondary)

		assert.Len(t, res.Matched, 2)
		assert.Len(t, res.Unmatched, 1)
		assert.Equal(t, len(secondary), len(res.Matched)+len(res.Unmatched))
		assert.Equal(t, "X3", res.Unmatched[0].ExternalID)
	})

	t.Run("one primary can match several secondaries", func(t *testing.T) {
		secondary := []catalog.Record{
			{ExternalID: "X1", Barcodes: []string{"4780000000000"}},
			{ExternalID: "X2", SKU: "19641"},
		}
		res := Match(primary, secondary)

		require.Len(t, res.Matched, 2)
		assert.Equal(t, "A1", res.Matched[0].Primary.ExternalID)
		assert.Equal(t, "A1", res.Matched[1].Primary.ExternalID)
	})

	t.Run("keyless secondary lands in unmatched", func(t *testing.T) {
		res := Match(primary, []catalog.Record{{ExternalID: "X9"}})
		assert.Empty(t, res.Matched)
		assert.Len(t, res.Unmatched, 1)
	})

	t.Run("empty inputs", func(t *testing.T) {
		res := Match(nil, nil)
		assert.Empty(t, res.Matched)
		assert.Empty(t, res.Unmatched)
	})
}
