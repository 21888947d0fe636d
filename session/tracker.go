// Package session restores, creates and destroys the authenticated session
// and keeps the stored bearer token in step with it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raushankrgupta/fitly-client/api"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/raushankrgupta/fitly-client/store"
	"github.com/raushankrgupta/fitly-client/utils"
	"github.com/rs/zerolog/log"
)

// ErrMissingCredentials is returned before any network call when email or password is blank
var ErrMissingCredentials = errors.New("email and password are required")

// AuthAPI is the part of the backend the tracker talks to
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.TokenResponse, error)
	Register(ctx context.Context, email, password, plan string) (*models.TokenResponse, error)
	Me(ctx context.Context, token string) (*models.MeResponse, error)
	Pricing(ctx context.Context) (map[string]models.PricingPlan, error)
}

// Tracker owns the session token in a Store
type Tracker struct {
	api   AuthAPI
	store store.Store
	now   func() time.Time
}

func NewTracker(authAPI AuthAPI, s store.Store) *Tracker {
	return &Tracker{api: authAPI, store: s, now: time.Now}
}

// Restore rebuilds the session from the stored token. It returns a nil session
// when there is no token, or when the token is expired or rejected; in those
// two cases the token is also cleared. A transport failure returns the error
// and leaves the token for the next attempt.
func (t *Tracker) Restore(ctx context.Context) (*models.Session, error) {
	token, ok, err := t.store.Get(ctx, store.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored token: %w", err)
	}
	if !ok || token == "" {
		return nil, nil
	}

	if utils.TokenExpired(token, t.now()) {
		log.Info().Msg("Stored token expired, signing out")
		return nil, t.clear(ctx)
	}

	me, err := t.api.Me(ctx, token)
	if err != nil {
		if api.IsUnauthorized(err) {
			log.Info().Err(err).Msg("Stored token rejected, signing out")
			return nil, t.clear(ctx)
		}
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	return &models.Session{
		Token:      token,
		Email:      me.Email,
		Plan:       me.Plan,
		DailyUsage: me.DailyUsage,
	}, nil
}

// Refresh re-reads plan and usage for an existing session
func (t *Tracker) Refresh(ctx context.Context, sess *models.Session) (*models.Session, error) {
	me, err := t.api.Me(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	return &models.Session{Token: sess.Token, Email: me.Email, Plan: me.Plan, DailyUsage: me.DailyUsage}, nil
}

// Login signs in and persists the returned token
func (t *Tracker) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	resp, err := t.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return t.establish(ctx, email, resp)
}

// Register creates an account on planID and persists the returned token
func (t *Tracker) Register(ctx context.Context, email, password, planID string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if planID == "" {
		planID = "free"
	}

	resp, err := t.api.Register(ctx, email, password, planID)
	if err != nil {
		return nil, err
	}
	return t.establish(ctx, email, resp)
}

// Logout forgets the stored token
func (t *Tracker) Logout(ctx context.Context) error {
	return t.clear(ctx)
}

// FetchPlans loads the plan catalog
func (t *Tracker) FetchPlans(ctx context.Context) (map[string]models.PricingPlan, error) {
	return t.api.Pricing(ctx)
}

func (t *Tracker) establish(ctx context.Context, email string, resp *models.TokenResponse) (*models.Session, error) {
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", api.ErrMalformedResponse)
	}
	if err := t.store.Set(ctx, store.TokenKey, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return &models.Session{
		Token:      resp.AccessToken,
		Email:      email,
		Plan:       resp.Plan,
		DailyUsage: resp.DailyUsage,
	}, nil
}

func (t *Tracker) clear(ctx context.Context) error {
	if err := t.store.Clear(ctx, store.TokenKey); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
