package api

import (
	"context"
	"fmt"

	"github.com/rickgao/exchange-trader/internal/model"
)

type getAccountFundsParams struct {
	Wallet string `json:"wallet,omitempty"`
}

// GetAccountFunds fetches the account balance.
func (c *Client) GetAccountFunds(ctx context.Context) (*AccountFundsResponse, error) {
	var resp AccountFundsResponse
	if err := c.post(ctx, c.endpoints.Account, "getAccountFunds", getAccountFundsParams{}, &resp); err != nil {
		return nil, fmt.Errorf("get account funds: %w", err)
	}
	return &resp, nil
}

// UpdateAccountDetails refreshes the cached account funds.
func (c *Client) UpdateAccountDetails(ctx context.Context) error {
	resp, err := c.GetAccountFunds(ctx)
	if err != nil {
		return err
	}

	funds := resp.ToModel(c.now())

	c.mu.Lock()
	c.funds = funds
	c.mu.Unlock()

	return nil
}

// AccountFunds returns the cached funds from the last refresh.
func (c *Client) AccountFunds() model.AccountFunds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.funds
}
