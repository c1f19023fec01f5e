package yandex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toparuz/marketsync/pkg/dispatch"
	"github.com/toparuz/marketsync/pkg/errors"
)

func mappingsPage(nextToken string, offers ...map[string]any) map[string]any {
	mappings := make([]map[string]any, 0, len(offers))
	for _, o := range offers {
		mappings = append(mappings, map[string]any{"offer": o})
	}
	return map[string]any{
		"result": map[string]any{
			"offerMappings": mappings,
			"paging":        map[string]any{"nextPageToken": nextToken},
		},
	}
}

func stocksPage(nextToken string, offers ...map[string]any) map[string]any {
	return map[string]any{
		"result": map[string]any{
			"warehouses": []map[string]any{{"offers": offers}},
			"paging":     map[string]any{"nextPageToken": nextToken},
		},
	}
}

// newTestClient serves scripted mappings and stocks pages in request order.
func newTestClient(t *testing.T, mappings, stocks []map[string]any) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/business/offer-mappings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key123", r.Header.Get("Api-Key"))
		assert.Equal(t, http.MethodPost, r.Method)
		page := mappings[0]
		if len(mappings) > 1 {
			mappings = mappings[1:]
		}
		json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/campaign/offers/stocks", func(w http.ResponseWriter, r *http.Request) {
		page := stocks[0]
		if len(stocks) > 1 {
			stocks = stocks[1:]
		}
		json.NewEncoder(w).Encode(page)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(Config{
		CampaignURL: srv.URL + "/campaign",
		BusinessURL: srv.URL + "/business",
		APIKey:      "key123",
		Currency:    "UZS",
	})
}

func TestFetchCombinesMappingsAndStocks(t *testing.T) {
	client := newTestClient(t,
		[]map[string]any{mappingsPage("",
			map[string]any{
				"offerId":    "X1",
				"name":       "Pen",
				"barcodes":   []string{"4780000000000"},
				"basicPrice": map[string]any{"value": 120000.0},
			},
			map[string]any{"offerId": "X2", "name": "Pencil"},
		)},
		[]map[string]any{stocksPage("",
			map[string]any{
				"offerId": "X1",
				"stocks": []map[string]any{
					{"type": "FIT", "count": 99.0},
					{"type": "AVAILABLE", "count": 4.0},
				},
			},
			map[string]any{"offerId": "X2", "stocks": []map[string]any{}},
		)},
	)

	records, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	x1 := records[0]
	assert.Equal(t, "X1", x1.ExternalID)
	assert.Equal(t, []string{"4780000000000"}, x1.Barcodes)
	require.NotNil(t, x1.Quantity)
	assert.Equal(t, 4.0, *x1.Quantity, "only the AVAILABLE stock type counts")
	require.NotNil(t, x1.Price)
	assert.Equal(t, 120000.0, *x1.Price)

	x2 := records[1]
	assert.Nil(t, x2.Price, "offer without basicPrice carries no price")
	require.NotNil(t, x2.Quantity)
	assert.Zero(t, *x2.Quantity, "stock entry without AVAILABLE counts as zero")
}

func TestFetchOfferWithoutStockEntry(t *testing.T) {
	client := newTestClient(t,
		[]map[string]any{mappingsPage("", map[string]any{"offerId": "X1"})},
		[]map[string]any{stocksPage("")},
	)

	records, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Quantity, "offer absent from stocks carries no quantity")
}

func TestFetchFollowsPageTokens(t *testing.T) {
	client := newTestClient(t,
		[]map[string]any{
			mappingsPage("next1", map[string]any{"offerId": "X1"}),
			mappingsPage("", map[string]any{"offerId": "X2"}),
		},
		[]map[string]any{stocksPage("")},
	)

	records, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFetchSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(Config{CampaignURL: srv.URL, BusinessURL: srv.URL, APIKey: "k"})
	_, err := client.Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestStocksSenderPayload(t *testing.T) {
	var got map[string]any
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(Config{CampaignURL: srv.URL, APIKey: "k"})
	sender := client.StocksSender()

	assert.Equal(t, "yandex-stocks", sender.Target())
	err := sender.SendBatch(context.Background(), []dispatch.Item{
		{ID: "X1", Value: 7.9},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	skus := got["skus"].([]any)
	require.Len(t, skus, 1)
	sku := skus[0].(map[string]any)
	assert.Equal(t, "X1", sku["sku"])
	items := sku["items"].([]any)
	assert.Equal(t, 7.0, items[0].(map[string]any)["count"], "counts truncate to integers")
}

func TestPricesSenderPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(Config{BusinessURL: srv.URL, APIKey: "k", Currency: "UZS"})
	sender := client.PricesSender()

	assert.Equal(t, "yandex-prices", sender.Target())
	err := sender.SendBatch(context.Background(), []dispatch.Item{
		{ID: "X1", Value: 125000},
	})
	require.NoError(t, err)

	offers := got["offers"].([]any)
	require.Len(t, offers, 1)
	offer := offers[0].(map[string]any)
	assert.Equal(t, "X1", offer["offerId"])
	price := offer["price"].(map[string]any)
	assert.Equal(t, 125000.0, price["value"])
	assert.Equal(t, "UZS", price["currencyId"])
}
