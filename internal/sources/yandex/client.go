// Package yandex fetches the Yandex Market offer catalog and pushes stock
// and price updates back. Offer mappings (identity, barcodes, price) and
// warehouse stocks are fetched separately and combined into one normalized
// record per offer at this boundary.
package yandex

import (
	"context"
	"fmt"

	"github.com/toparuz/marketsync/internal/transport"
	"github.com/toparuz/marketsync/pkg/catalog"
	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/logging"
)

// SourceName identifies this source in logs and errors.
const SourceName = "yandex"

// pageLimit is the fixed page size for the paging endpoints.
const pageLimit = 200

// Config holds the Yandex Market client configuration.
type Config struct {
	// CampaignURL addresses campaign-scoped endpoints (stocks).
	CampaignURL string

	// BusinessURL addresses business-scoped endpoints (offer mappings,
	// price updates).
	BusinessURL string

	// APIKey is the opaque credential sent in the Api-Key header.
	APIKey string

	// Currency is the currency id carried in price update payloads.
	Currency string
}

// Client fetches and normalizes the Yandex offer catalog.
type Client struct {
	cfg       Config
	transport *transport.Client
}

// New creates a Yandex client.
func New(cfg Config) *Client {
	return &Client{
		cfg:       cfg,
		transport: transport.New(&transport.HeaderAuth{Header: "Api-Key", Value: cfg.APIKey}),
	}
}

// Name implements catalog.Fetcher.
func (c *Client) Name() string {
	return SourceName
}

// paging is the cursor block shared by the paged responses.
type paging struct {
	NextPageToken string `json:"nextPageToken"`
}

// mappingsResponse is the wire shape of one offer-mappings page.
type mappingsResponse struct {
	Result struct {
		OfferMappings []struct {
			Offer wireOffer `json:"offer"`
		} `json:"offerMappings"`
		Paging paging `json:"paging"`
	} `json:"result"`
}

// wireOffer is the subset of the offer mapping this system reads.
type wireOffer struct {
	OfferID    string   `json:"offerId"`
	Name       string   `json:"name"`
	Barcodes   []string `json:"barcodes"`
	BasicPrice *struct {
		Value float64 `json:"value"`
	} `json:"basicPrice"`
}

// stocksResponse is the wire shape of one offers/stocks page.
type stocksResponse struct {
	Result struct {
		Warehouses []struct {
			Offers []struct {
				OfferID string `json:"offerId"`
				Stocks  []struct {
					Type  string  `json:"type"`
					Count float64 `json:"count"`
				} `json:"stocks"`
			} `json:"offers"`
		} `json:"warehouses"`
		Paging paging `json:"paging"`
	} `json:"result"`
}

// Fetch implements catalog.Fetcher. It combines the offer mappings with the
// per-warehouse available stocks into one record per offer.
func (c *Client) Fetch(ctx context.Context) ([]catalog.Record, error) {
	offers, err := c.fetchMappings(ctx)
	if err != nil {
		return nil, errors.WrapFetch(SourceName, err)
	}
	stocks, err := c.fetchStocks(ctx)
	if err != nil {
		return nil, errors.WrapFetch(SourceName, err)
	}

	records := make([]catalog.Record, 0, len(offers))
	for _, o := range offers {
		rec := catalog.Record{
			ExternalID: o.OfferID,
			Barcodes:   o.Barcodes,
			Title:      o.Name,
		}
		if o.BasicPrice != nil {
			rec.Price = catalog.Float(o.BasicPrice.Value)
		}
		if count, ok := stocks[o.OfferID]; ok {
			rec.Quantity = catalog.Float(count)
		}
		records = append(records, rec)
	}

	logging.FromContext(ctx).Info().
		Str("source", SourceName).
		Int("records", len(records)).
		Int("stocked", len(stocks)).
		Msg("Catalog fetched")
	return records, nil
}

// fetchMappings pages through the business offer-mappings listing.
func (c *Client) fetchMappings(ctx context.Context) ([]wireOffer, error) {
	var offers []wireOffer
	pageToken := ""
	for {
		url := fmt.Sprintf("%s/offer-mappings?limit=%d", c.cfg.BusinessURL, pageLimit)
		if pageToken != "" {
			url += "&page_token=" + pageToken
		}

		resp, err := c.transport.JSON(ctx, "POST", url, nil)
		if err != nil {
			return nil, err
		}
		var body mappingsResponse
		if err := transport.DecodeResponse(SourceName, resp, &body); err != nil {
			return nil, err
		}

		for _, m := range body.Result.OfferMappings {
			offers = append(offers, m.Offer)
		}

		pageToken = body.Result.Paging.NextPageToken
		if pageToken == "" {
			return offers, nil
		}
	}
}

// fetchStocks pages through the campaign stocks listing, flattening the
// warehouses and keeping each offer's AVAILABLE count. Offers with no
// stock entries count as zero available, matching how the marketplace
// reports sold-out offers.
func (c *Client) fetchStocks(ctx context.Context) (map[string]float64, error) {
	stocks := make(map[string]float64)
	pageToken := ""
	for {
		url := fmt.Sprintf("%s/offers/stocks?limit=%d", c.cfg.CampaignURL, pageLimit)
		if pageToken != "" {
			url += "&page_token=" + pageToken
		}

		resp, err := c.transport.JSON(ctx, "POST", url, nil)
		if err != nil {
			return nil, err
		}
		var body stocksResponse
		if err := transport.DecodeResponse(SourceName, resp, &body); err != nil {
			return nil, err
		}

		for _, wh := range body.Result.Warehouses {
			for _, offer := range wh.Offers {
				count := 0.0
				for _, s := range offer.Stocks {
					if s.Type == "AVAILABLE" {
						count = s.Count
						break
					}
				}
				stocks[offer.OfferID] = count
			}
		}

		pageToken = body.Result.Paging.NextPageToken
		if pageToken == "" {
			return stocks, nil
		}
	}
}
