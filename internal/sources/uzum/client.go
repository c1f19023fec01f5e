// Package uzum fetches the Uzum marketplace SKU catalog and pushes stock
// updates back. The product listing carries identity and price per SKU; the
// FBS stock listing carries quantities. Both are combined into one
// normalized record per stocked SKU at this boundary.
package uzum

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/toparuz/marketsync/internal/transport"
	"github.com/toparuz/marketsync/pkg/catalog"
	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/logging"
)

// SourceName identifies this source in logs and errors.
const SourceName = "uzum"

// pageSize is the fixed page size for product listing.
const pageSize = 200

// Config holds the Uzum client configuration.
type Config struct {
	BaseURL string

	// Token is the opaque credential sent in the Authorization header.
	Token string

	// ShopID scopes the product listing.
	ShopID int
}

// Client fetches and normalizes the Uzum SKU catalog.
type Client struct {
	cfg       Config
	transport *transport.Client
}

// New creates an Uzum client.
func New(cfg Config) *Client {
	return &Client{
		cfg:       cfg,
		transport: transport.New(&transport.HeaderAuth{Header: "Authorization", Value: cfg.Token}),
	}
}

// Name implements catalog.Fetcher.
func (c *Client) Name() string {
	return SourceName
}

// productsResponse is the wire shape of one product listing page.
type productsResponse struct {
	TotalProductsAmount int `json:"totalProductsAmount"`
	ProductList         []struct {
		SKUList []wireSKU `json:"skuList"`
	} `json:"productList"`
}

// wireSKU is the subset of the Uzum SKU shape this system reads.
type wireSKU struct {
	SKUID        int64    `json:"skuId"`
	Barcode      string   `json:"barcode"`
	Price        *float64 `json:"price"`
	ProductTitle string   `json:"productTitle"`
	SKUFullTitle string   `json:"skuFullTitle"`
}

// stocksResponse is the wire shape of the FBS stock listing.
type stocksResponse struct {
	Payload struct {
		SKUAmountList []wireStock `json:"skuAmountList"`
	} `json:"payload"`
}

// wireStock is one FBS stock entry.
type wireStock struct {
	SKUID        int64   `json:"skuId"`
	Barcode      string  `json:"barcode"`
	Amount       float64 `json:"amount"`
	ProductTitle string  `json:"productTitle"`
}

// Fetch implements catalog.Fetcher. SKUs without a stock entry are not
// sellable through FBS and are dropped here, matching the marketplace's own
// view of the assortment.
func (c *Client) Fetch(ctx context.Context) ([]catalog.Record, error) {
	skus, err := c.fetchSKUs(ctx)
	if err != nil {
		return nil, errors.WrapFetch(SourceName, err)
	}
	stocks, err := c.fetchStocks(ctx)
	if err != nil {
		return nil, errors.WrapFetch(SourceName, err)
	}

	bySKUID := make(map[int64]wireStock, len(stocks))
	byBarcode := make(map[string]wireStock, len(stocks))
	for _, st := range stocks {
		if st.SKUID != 0 {
			bySKUID[st.SKUID] = st
		}
		if bc := strings.TrimSpace(st.Barcode); bc != "" {
			byBarcode[bc] = st
		}
	}

	records := make([]catalog.Record, 0, len(skus))
	for _, sku := range skus {
		stock, ok := bySKUID[sku.SKUID]
		if !ok {
			if stock, ok = byBarcode[strings.TrimSpace(sku.Barcode)]; !ok {
				continue
			}
		}

		rec := catalog.Record{
			ExternalID: strconv.FormatInt(sku.SKUID, 10),
			Quantity:   catalog.Float(stock.Amount),
			Price:      sku.Price,
			Title:      sku.ProductTitle,
		}
		if rec.Title == "" {
			rec.Title = sku.SKUFullTitle
		}
		if rec.Title == "" {
			rec.Title = stock.ProductTitle
		}

		barcode := strings.TrimSpace(sku.Barcode)
		if barcode == "" {
			barcode = strings.TrimSpace(stock.Barcode)
		}
		if barcode != "" {
			rec.Barcodes = []string{barcode}
		}

		records = append(records, rec)
	}

	logging.FromContext(ctx).Info().
		Str("source", SourceName).
		Int("records", len(records)).
		Int("skus", len(skus)).
		Msg("Catalog fetched")
	return records, nil
}

// fetchSKUs pages through the shop product listing, flattening each
// product's SKU list.
func (c *Client) fetchSKUs(ctx context.Context) ([]wireSKU, error) {
	var skus []wireSKU
	total := -1
	fetched := 0
	for page := 0; total < 0 || fetched < total; page++ {
		url := fmt.Sprintf("%s/v1/product/shop/%d?size=%d&page=%d", c.cfg.BaseURL, c.cfg.ShopID, pageSize, page)
		resp, err := c.transport.Get(ctx, url)
		if err != nil {
			return nil, err
		}

		var body productsResponse
		if err := transport.DecodeResponse(SourceName, resp, &body); err != nil {
			return nil, err
		}
		total = body.TotalProductsAmount

		if len(body.ProductList) == 0 {
			break
		}
		fetched += len(body.ProductList)
		for _, p := range body.ProductList {
			skus = append(skus, p.SKUList...)
		}
	}
	return skus, nil
}

// fetchStocks retrieves the complete FBS stock listing.
func (c *Client) fetchStocks(ctx context.Context) ([]wireStock, error) {
	resp, err := c.transport.Get(ctx, c.cfg.BaseURL+"/v2/fbs/sku/stocks")
	if err != nil {
		return nil, err
	}

	var body stocksResponse
	if err := transport.DecodeResponse(SourceName, resp, &body); err != nil {
		return nil, err
	}
	return body.Payload.SKUAmountList, nil
}
