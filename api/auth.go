package api

import (
	"context"
	"net/http"

	"github.com/raushankrgupta/fitly-client/models"
)

// Login exchanges credentials for an access token
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	var resp models.TokenResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, loginPath, req, &resp, callOptions{timeout: c.authTimeout}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account on plan and returns its access token
func (c *Client) Register(ctx context.Context, email, password, plan string) (*models.TokenResponse, error) {
	var resp models.TokenResponse
	req := models.RegisterRequest{Email: email, Password: password, Plan: plan}
	if err := c.doJSON(ctx, http.MethodPost, registerPath, req, &resp, callOptions{timeout: c.authTimeout}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the account that owns token
func (c *Client) Me(ctx context.Context, token string) (*models.MeResponse, error) {
	var resp models.MeResponse
	if err := c.doJSON(ctx, http.MethodGet, mePath, nil, &resp, callOptions{token: token, timeout: c.authTimeout}); err != nil {
		return nil, err
	}
	return &resp, nil
}
