package api

import (
	"context"
	"net/http"

	"github.com/raushankrgupta/fitly-client/models"
)

// VirtualTryOn posts one person/garment pair. token may be empty for anonymous
// use; requestID is forwarded as X-Request-ID so backend logs can be matched.
func (c *Client) VirtualTryOn(ctx context.Context, token, requestID string, req *models.TryOnRequest) (*models.TryOnResponse, error) {
	var resp models.TryOnResponse
	co := callOptions{token: token, timeout: c.tryOnTimeout}
	if requestID != "" {
		co.headers = map[string]string{"X-Request-ID": requestID}
	}
	if err := c.doJSON(ctx, http.MethodPost, c.tryOnPath, req, &resp, co); err != nil {
		return nil, err
	}
	return &resp, nil
}
