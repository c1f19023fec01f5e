package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toparuz/marketsync/pkg/catalog"
	"github.com/toparuz/marketsync/pkg/match"
)

func TestMerge(t *testing.T) {
	t.Run("joins both sides onto one record", func(t *testing.T) {
		local := catalog.Record{
			ExternalID: "A1",
			Barcodes:   []string{"4780000000000"},
			Quantity:   catalog.Float(7),
			Price:      catalog.Float(125000),
			Title:      "Local title",
		}
		remote := catalog.Record{
			ExternalID: "X1",
			Barcodes:   []string{"4780000000000"},
			Quantity:   catalog.Float(4),
			Price:      catalog.Float(120000),
			Title:      "Remote title",
		}

		merged := Merge([]match.Pair{{Primary: &local, Secondary: remote}})
		require.Len(t, merged, 1)

		rec := merged[0]
		assert.Equal(t, "X1", rec.Identifier)
		assert.Equal(t, "4780000000000", rec.Barcode)
		assert.Equal(t, "Remote title", rec.Title)
		assert.Equal(t, 7.0, rec.LocalQuantity)
		assert.Equal(t, 125000.0, rec.LocalPrice)
		assert.Equal(t, 4.0, rec.RemoteQuantity)
		assert.Equal(t, 120000.0, rec.RemotePrice)
		assert.False(t, rec.LocalPriceAbsent)
	})

	t.Run("absent values fall back to zero", func(t *testing.T) {
		local := catalog.Record{ExternalID: "A1"}
		remote := catalog.Record{ExternalID: "X1", Quantity: catalog.Float(2)}

		merged := Merge([]match.Pair{{Primary: &local, Secondary: remote}})
		require.Len(t, merged, 1)

		rec := merged[0]
		assert.Zero(t, rec.LocalQuantity)
		assert.Zero(t, rec.LocalPrice)
		assert.True(t, rec.LocalPriceAbsent)
	})

	t.Run("zero local price is not flagged absent", func(t *testing.T) {
		local := catalog.Record{ExternalID: "A1", Price: catalog.Float(0)}
		remote := catalog.Record{ExternalID: "X1"}

		merged := Merge([]match.Pair{{Primary: &local, Secondary: remote}})
		require.Len(t, merged, 1)
		assert.False(t, merged[0].LocalPriceAbsent)
	})

	t.Run("pairs without a remote identifier are dropped", func(t *testing.T) {
		local := catalog.Record{ExternalID: "A1"}
		merged := Merge([]match.Pair{{Primary: &local, Secondary: catalog.Record{}}})
		assert.Empty(t, merged)
	})

	t.Run("title and barcode fall back to the local side", func(t *testing.T) {
		local := catalog.Record{ExternalID: "A1", Barcodes: []string{"111"}, Title: "Local"}
		remote := catalog.Record{ExternalID: "X1"}

		merged := Merge([]match.Pair{{Primary: &local, Secondary: remote}})
		require.Len(t, merged, 1)
		assert.Equal(t, "Local", merged[0].Title)
		assert.Equal(t, "111", merged[0].Barcode)
	})
}
