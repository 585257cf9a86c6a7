package api

import (
	"context"
	"fmt"

	"github.com/rickgao/exchange-trader/internal/model"
)

// ListMarketCatalogue fetches catalogue entries for the filter.
func (c *Client) ListMarketCatalogue(ctx context.Context, filter MarketFilter, projection []string, maxResults int) ([]model.MarketCatalogue, error) {
	params := listMarketCatalogueParams{
		Filter:           filter,
		MarketProjection: projection,
		MaxResults:       maxResults,
	}

	var resp []APIMarketCatalogue
	if err := c.post(ctx, c.endpoints.Betting, "listMarketCatalogue", params, &resp); err != nil {
		return nil, fmt.Errorf("list market catalogue: %w", err)
	}

	out := make([]model.MarketCatalogue, 0, len(resp))
	for i := range resp {
		out = append(out, resp[i].ToModel())
	}
	return out, nil
}

// ListClearedOrders fetches one page of settled orders.
func (c *Client) ListClearedOrders(ctx context.Context, req ClearedOrdersRequest) (*ClearedOrderPage, error) {
	var resp ClearedOrdersResponse
	if err := c.post(ctx, c.endpoints.Betting, "listClearedOrders", req, &resp); err != nil {
		return nil, fmt.Errorf("list cleared orders: %w", err)
	}

	page := &ClearedOrderPage{
		Orders:        make([]model.ClearedOrder, 0, len(resp.ClearedOrders)),
		MoreAvailable: resp.MoreAvailable,
	}
	for i := range resp.ClearedOrders {
		page.Orders = append(page.Orders, resp.ClearedOrders[i].ToModel())
	}
	return page, nil
}

// PlaceOrders sends place instructions for one market.
func (c *Client) PlaceOrders(ctx context.Context, req PlaceOrdersRequest) (*PlaceExecutionReport, error) {
	var resp PlaceExecutionReport
	if err := c.post(ctx, c.endpoints.Betting, "placeOrders", req, &resp); err != nil {
		return nil, fmt.Errorf("place orders %s: %w", req.MarketID, err)
	}
	return &resp, nil
}

// CancelOrders sends cancel instructions for one market.
func (c *Client) CancelOrders(ctx context.Context, req CancelOrdersRequest) (*CancelExecutionReport, error) {
	if len(req.Instructions) == 0 {
		// An empty instruction list cancels every bet on the market.
		return nil, fmt.Errorf("cancel orders %s: no instructions", req.MarketID)
	}

	var resp CancelExecutionReport
	if err := c.post(ctx, c.endpoints.Betting, "cancelOrders", req, &resp); err != nil {
		return nil, fmt.Errorf("cancel orders %s: %w", req.MarketID, err)
	}
	return &resp, nil
}

// UpdateOrders sends update instructions for one market.
func (c *Client) UpdateOrders(ctx context.Context, req UpdateOrdersRequest) (*UpdateExecutionReport, error) {
	var resp UpdateExecutionReport
	if err := c.post(ctx, c.endpoints.Betting, "updateOrders", req, &resp); err != nil {
		return nil, fmt.Errorf("update orders %s: %w", req.MarketID, err)
	}
	return &resp, nil
}

// ReplaceOrders sends replace instructions for one market.
func (c *Client) ReplaceOrders(ctx context.Context, req ReplaceOrdersRequest) (*ReplaceExecutionReport, error) {
	var resp ReplaceExecutionReport
	if err := c.post(ctx, c.endpoints.Betting, "replaceOrders", req, &resp); err != nil {
		return nil, fmt.Errorf("replace orders %s: %w", req.MarketID, err)
	}
	return &resp, nil
}
