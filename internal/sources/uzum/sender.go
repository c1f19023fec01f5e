package uzum

import (
	"context"
	"strconv"

	"github.com/toparuz/marketsync/internal/transport"
	"github.com/toparuz/marketsync/pkg/dispatch"
)

// stockPayload is the wire shape of an FBS stock update call.
type stockPayload struct {
	SKUAmountList []stockAmount `json:"skuAmountList"`
}

type stockAmount struct {
	SKUID  int64 `json:"skuId"`
	Amount int64 `json:"amount"`
}

// StockSender pushes quantity updates to the FBS stock endpoint.
type StockSender struct {
	client *Client
}

// StockSender returns the dispatch sender for quantity updates.
func (c *Client) StockSender() *StockSender {
	return &StockSender{client: c}
}

// Target implements dispatch.Sender.
func (s *StockSender) Target() string {
	return SourceName + "-stocks"
}

// SendBatch implements dispatch.Sender. Items whose identifier is not a
// numeric SKU id cannot be addressed by this endpoint and are dropped from
// the payload; the dispatcher has already validated identifiers are present.
func (s *StockSender) SendBatch(ctx context.Context, items []dispatch.Item) error {
	payload := stockPayload{SKUAmountList: make([]stockAmount, 0, len(items))}
	for _, it := range items {
		skuID, err := strconv.ParseInt(it.ID, 10, 64)
		if err != nil {
			continue
		}
		payload.SKUAmountList = append(payload.SKUAmountList, stockAmount{
			SKUID:  skuID,
			Amount: int64(it.Value),
		})
	}

	resp, err := s.client.transport.JSON(ctx, "POST", s.client.cfg.BaseURL+"/v2/fbs/sku/stock", payload)
	if err != nil {
		return err
	}
	return transport.DecodeResponse(s.Target(), resp, nil)
}
