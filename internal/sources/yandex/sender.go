package yandex

import (
	"context"

	"github.com/toparuz/marketsync/internal/transport"
	"github.com/toparuz/marketsync/pkg/dispatch"
)

// stocksPayload is the wire shape of a stocks update call.
type stocksPayload struct {
	SKUs []stockSKU `json:"skus"`
}

type stockSKU struct {
	SKU   string      `json:"sku"`
	Items []stockItem `json:"items"`
}

type stockItem struct {
	Count int64 `json:"count"`
}

// StocksSender pushes quantity updates to the campaign stocks endpoint.
type StocksSender struct {
	client *Client
}

// StocksSender returns the dispatch sender for quantity updates.
func (c *Client) StocksSender() *StocksSender {
	return &StocksSender{client: c}
}

// Target implements dispatch.Sender.
func (s *StocksSender) Target() string {
	return SourceName + "-stocks"
}

// SendBatch implements dispatch.Sender.
func (s *StocksSender) SendBatch(ctx context.Context, items []dispatch.Item) error {
	payload := stocksPayload{SKUs: make([]stockSKU, 0, len(items))}
	for _, it := range items {
		payload.SKUs = append(payload.SKUs, stockSKU{
			SKU:   it.ID,
			Items: []stockItem{{Count: int64(it.Value)}},
		})
	}

	url := s.client.cfg.CampaignURL + "/offers/stocks"
	resp, err := s.client.transport.JSON(ctx, "PUT", url, payload)
	if err != nil {
		return err
	}
	return transport.DecodeResponse(s.Target(), resp, nil)
}

// pricesPayload is the wire shape of a price update call.
type pricesPayload struct {
	Offers []priceOffer `json:"offers"`
}

type priceOffer struct {
	OfferID string     `json:"offerId"`
	Price   priceValue `json:"price"`
}

type priceValue struct {
	Value      float64 `json:"value"`
	CurrencyID string  `json:"currencyId"`
}

// PricesSender pushes price updates to the business price-updates endpoint.
type PricesSender struct {
	client *Client
}

// PricesSender returns the dispatch sender for price updates.
func (c *Client) PricesSender() *PricesSender {
	return &PricesSender{client: c}
}

// Target implements dispatch.Sender.
func (s *PricesSender) Target() string {
	return SourceName + "-prices"
}

// SendBatch implements dispatch.Sender.
func (s *PricesSender) SendBatch(ctx context.Context, items []dispatch.Item) error {
	payload := pricesPayload{Offers: make([]priceOffer, 0, len(items))}
	for _, it := range items {
		payload.Offers = append(payload.Offers, priceOffer{
			OfferID: it.ID,
			Price:   priceValue{Value: it.Value, CurrencyID: s.client.cfg.Currency},
		})
	}

	url := s.client.cfg.BusinessURL + "/offer-prices/updates"
	resp, err := s.client.transport.JSON(ctx, "POST", url, payload)
	if err != nil {
		return err
	}
	return transport.DecodeResponse(s.Target(), resp, nil)
}
