package api

import (
	"context"
	"net/http"

	"github.com/raushankrgupta/fitly-client/models"
)

// Pricing fetches the plan catalog keyed by plan id
func (c *Client) Pricing(ctx context.Context) (map[string]models.PricingPlan, error) {
	var resp models.PricingResponse
	if err := c.doJSON(ctx, http.MethodGet, pricingPath, nil, &resp, callOptions{timeout: c.authTimeout}); err != nil {
		return nil, err
	}

	plans := make(map[string]models.PricingPlan, len(resp.Plans))
	for id, p := range resp.Plans {
		p.ID = id
		plans[id] = p
	}
	return plans, nil
}

// Health reports the backend's self-described status
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.doJSON(ctx, http.MethodGet, healthPath, nil, &resp, callOptions{timeout: c.authTimeout}); err != nil {
		return nil, err
	}
	return resp, nil
}
