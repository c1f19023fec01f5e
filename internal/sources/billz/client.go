// Package billz fetches the Billz POS catalog, the system of record for
// quantities and prices. Fetched products are normalized to catalog.Record
// at this boundary: quantity is the sum of active measurements for the
// configured facility, price is the facility's retail price.
package billz

import (
	"context"
	"fmt"
	"strings"

	"github.com/toparuz/marketsync/internal/transport"
	"github.com/toparuz/marketsync/pkg/catalog"
	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/logging"
)

// SourceName identifies this source in logs and errors.
const SourceName = "billz"

// pageSize is the fixed page size for product listing.
const pageSize = 200

// Config holds the Billz client configuration.
type Config struct {
	BaseURL     string
	AuthURL     string
	SecretToken string

	// Facility selects which shop's measurements and prices count as
	// authoritative, matched case-insensitively by substring.
	Facility string
}

// Client fetches and normalizes the Billz product catalog.
type Client struct {
	cfg       Config
	tokens    *tokenSource
	transport *transport.Client
}

// New creates a Billz client.
func New(cfg Config) *Client {
	tokens := newTokenSource(cfg.AuthURL, cfg.SecretToken)
	c := &Client{cfg: cfg, tokens: tokens}
	c.transport = transport.New(&transport.BearerAuth{Token: func() string {
		// Transport applies whatever token is cached; Fetch refreshes it
		// up front so this never triggers a login mid-request.
		return tokens.current()
	}})
	return c
}

// Name implements catalog.Fetcher.
func (c *Client) Name() string {
	return SourceName
}

// productsResponse is the wire shape of one product listing page.
type productsResponse struct {
	Count    int           `json:"count"`
	Products []wireProduct `json:"products"`
}

// wireProduct is the subset of the Billz product shape this system reads.
type wireProduct struct {
	ID      string `json:"id"`
	SKU     string `json:"sku"`
	Barcode string `json:"barcode"`
	Name    string `json:"name"`

	ShopMeasurementValues []struct {
		ShopName               string  `json:"shop_name"`
		ActiveMeasurementValue float64 `json:"active_measurement_value"`
	} `json:"shop_measurement_values"`

	ShopPrices []struct {
		ShopName    string  `json:"shop_name"`
		RetailPrice float64 `json:"retail_price"`
	} `json:"shop_prices"`
}

// Fetch implements catalog.Fetcher. It pages through the full product
// listing and returns the normalized snapshot, or a FetchError; a partial
// list is never returned silently.
func (c *Client) Fetch(ctx context.Context) ([]catalog.Record, error) {
	if _, err := c.tokens.Token(ctx); err != nil {
		return nil, errors.WrapFetch(SourceName, err)
	}

	var records []catalog.Record
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/v2/products?limit=%d&page=%d", c.cfg.BaseURL, pageSize, page)
		resp, err := c.transport.Get(ctx, url)
		if err != nil {
			return nil, errors.WrapFetch(SourceName, err)
		}

		var body productsResponse
		if err := transport.DecodeResponse(SourceName, resp, &body); err != nil {
			return nil, errors.WrapFetch(SourceName, err)
		}

		for _, p := range body.Products {
			records = append(records, c.convert(p))
		}

		if len(body.Products) < pageSize || len(records) >= body.Count {
			break
		}
	}

	logging.FromContext(ctx).Info().
		Str("source", SourceName).
		Int("records", len(records)).
		Msg("Catalog fetched")
	return records, nil
}

// convert normalizes one wire product. Quantity and price are derived here,
// scoped to the configured facility, so nothing downstream ever touches the
// per-shop structures.
func (c *Client) convert(p wireProduct) catalog.Record {
	rec := catalog.Record{
		ExternalID: p.ID,
		SKU:        p.SKU,
		Title:      p.Name,
	}
	if bc := strings.TrimSpace(p.Barcode); bc != "" {
		rec.Barcodes = []string{bc}
	}

	quantity := 0.0
	for _, mv := range p.ShopMeasurementValues {
		if c.isFacility(mv.ShopName) {
			quantity += mv.ActiveMeasurementValue
		}
	}
	rec.Quantity = catalog.Float(quantity)
	rec.Price = c.facilityPrice(p)

	return rec
}

// facilityPrice selects the facility's first positive retail price, falling
// back to the first facility entry otherwise. No facility entry at all
// means the price is absent, not zero.
func (c *Client) facilityPrice(p wireProduct) *float64 {
	var first *float64
	for _, sp := range p.ShopPrices {
		if !c.isFacility(sp.ShopName) {
			continue
		}
		if sp.RetailPrice > 0 {
			return catalog.Float(sp.RetailPrice)
		}
		if first == nil {
			first = catalog.Float(sp.RetailPrice)
		}
	}
	return first
}

// isFacility matches a shop name against the configured facility tag.
func (c *Client) isFacility(shopName string) bool {
	return strings.Contains(strings.ToLower(shopName), strings.ToLower(c.cfg.Facility))
}
