// Package screen owns the try-on screen's view state. Every change goes
// through a named transition on Controller.
package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingImages  = errors.New("select both a person and a garment image first")
	ErrInFlight       = errors.New("a try-on is already in progress")
	ErrUsageExhausted = errors.New("daily try-on limit reached, upgrade your plan to continue")
	ErrNotSignedIn    = errors.New("not signed in")
	// ErrSuperseded is returned by Submit when the screen was reset or
	// signed out while the request was outstanding. The result is dropped.
	ErrSuperseded = errors.New("try-on result discarded after reset")
	ErrClosed     = errors.New("screen closed")
)

const missingResultMessage = "The server reported success but returned no result image"

// ImageLoader turns a user-chosen source into an asset
type ImageLoader interface {
	Load(ctx context.Context, slot models.Slot, source string) (*models.ImageAsset, error)
	Release(asset *models.ImageAsset)
}

// TryOnAPI submits one person/garment pair
type TryOnAPI interface {
	VirtualTryOn(ctx context.Context, token, requestID string, req *models.TryOnRequest) (*models.TryOnResponse, error)
}

// Sessions manages the signed-in account
type Sessions interface {
	Restore(ctx context.Context) (*models.Session, error)
	Refresh(ctx context.Context, sess *models.Session) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Register(ctx context.Context, email, password, planID string) (*models.Session, error)
	Logout(ctx context.Context) error
	FetchPlans(ctx context.Context) (map[string]models.PricingPlan, error)
}

// Options tunes a Controller
type Options struct {
	// AutoSubmit fires one submit AutoSubmitDelay after both images are present
	AutoSubmit      bool
	AutoSubmitDelay time.Duration
	Quality         string
	// RefreshUsageAfterTryOn re-reads usage from the backend after a
	// successful try-on instead of counting it locally
	RefreshUsageAfterTryOn bool
	// OnChange is called with a snapshot after every transition, outside the lock
	OnChange func(State)
	// OnAutoSubmit receives the outcome of each auto-triggered submit
	OnAutoSubmit func(*models.TryOnResult, error)
}

// Controller is the screen. It is safe for concurrent use.
type Controller struct {
	loader   ImageLoader
	tryOn    TryOnAPI
	sessions Sessions
	opts     Options

	mu       sync.Mutex
	state    State
	inFlight bool
	closed   bool
	// generation is bumped by Reset and Logout so late results are dropped
	generation uint64

	autoTimer *time.Timer
	autoSeq   uint64
	autoPair  string
	autoFired string

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a screen. sessions may be nil for anonymous use, in which case
// the screen starts on the main view and never asks for credentials.
func New(loader ImageLoader, tryOn TryOnAPI, sessions Sessions, opts Options) *Controller {
	if opts.AutoSubmitDelay <= 0 {
		opts.AutoSubmitDelay = 3 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		loader:   loader,
		tryOn:    tryOn,
		sessions: sessions,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.state = c.initialState()
	c.state.Quality = opts.Quality
	return c
}

func (c *Controller) initialState() State {
	if c.sessions == nil {
		return State{View: ViewMain}
	}
	return State{View: ViewAuth}
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.copy()
}

// RemainingUsage reports try-ons left today. limited is false when no cap applies.
func (c *Controller) RemainingUsage() (left int, limited bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.remaining()
}

// SelectImage loads source into slot, replacing and releasing any previous asset
func (c *Controller) SelectImage(ctx context.Context, slot models.Slot, source string) (*models.ImageAsset, error) {
	if _, ok := models.ParseSlot(string(slot)); !ok {
		return nil, fmt.Errorf("unknown image slot %q", slot)
	}

	asset, err := c.loader.Load(ctx, slot, source)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if asset != nil {
			c.loader.Release(asset)
		}
		return nil, ErrClosed
	}
	if err != nil {
		c.state.Error = err.Error()
		c.commit()
		return nil, err
	}

	var old *models.ImageAsset
	switch slot {
	case models.SlotPerson:
		old, c.state.Person = c.state.Person, asset
	case models.SlotGarment:
		old, c.state.Garment = c.state.Garment, asset
	}
	c.state.Error = ""
	c.rescheduleAutoLocked()
	c.commit()

	if old != nil {
		c.loader.Release(old)
	}
	return asset, nil
}

// SetQuality sets the optional quality tier sent with the next submit
func (c *Controller) SetQuality(quality string) {
	c.mu.Lock()
	c.state.Quality = quality
	c.commit()
}

// Submit sends the selected pair to the backend. Backend and transport
// failures come back as a failed result with a nil error; the error is
// reserved for submits that were refused or whose result was discarded.
func (c *Controller) Submit(ctx context.Context) (*models.TryOnResult, error) {
	c.mu.Lock()
	if err := c.checkSubmitLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	person, garment := c.state.Person, c.state.Garment
	quality := c.state.Quality
	gen := c.generation
	var token string
	if c.state.Session != nil {
		token = c.state.Session.Token
	}

	c.inFlight = true
	c.state.InFlight = true
	c.state.Error = ""
	// a manual submit also uses up the auto trigger for this pair
	c.autoFired = pairKey(person, garment)
	c.stopAutoLocked()
	c.commit()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.state.InFlight = false
		// a pair selected while this request was out may have had its trigger refused
		if c.autoTimer == nil && !c.closed {
			c.rescheduleAutoLocked()
		}
		c.commit()
	}()

	req, err := encodePair(ctx, person, garment)
	if err != nil {
		return c.apply(ctx, gen, models.NewTryOnFailure("", err.Error()))
	}
	req.Quality = quality

	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Logger()
	logger.Info().Str("person", person.ID).Str("garment", garment.ID).Msg("Submitting try-on")

	started := time.Now()
	resp, err := c.tryOn.VirtualTryOn(ctx, token, requestID, req)
	result := interpret(requestID, resp, err)

	if result.Success {
		logger.Info().Dur("duration", time.Since(started)).Float64("processing_time", result.ProcessingTime).Msg("Try-on succeeded")
	} else {
		logger.Warn().Dur("duration", time.Since(started)).Str("error", result.ErrorMessage).Msg("Try-on failed")
	}
	return c.apply(ctx, gen, result)
}

func (c *Controller) checkSubmitLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case !c.state.Ready():
		return ErrMissingImages
	case c.inFlight:
		return ErrInFlight
	}
	if sess := c.state.Session; sess != nil {
		if plan, ok := c.state.Plans[sess.Plan]; ok && !plan.Allows(sess.DailyUsage) {
			return ErrUsageExhausted
		}
	}
	return nil
}

// apply makes result current unless the screen moved on while it was outstanding
func (c *Controller) apply(ctx context.Context, gen uint64, result *models.TryOnResult) (*models.TryOnResult, error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Info().Str("request_id", result.RequestID).Msg("Discarding try-on result after reset")
		return nil, ErrSuperseded
	}

	c.state.Result = result
	c.state.Error = result.ErrorMessage

	var refreshFrom *models.Session
	if result.Success && c.state.Session != nil {
		if c.opts.RefreshUsageAfterTryOn && c.sessions != nil {
			sess := *c.state.Session
			refreshFrom = &sess
		} else {
			sess := *c.state.Session
			sess.DailyUsage++
			c.state.Session = &sess
			c.updateRemainingLocked()
		}
	}
	c.commit()

	if refreshFrom != nil {
		c.refreshUsage(ctx, gen, refreshFrom)
	}
	return result, nil
}

func (c *Controller) refreshUsage(ctx context.Context, gen uint64, from *models.Session) {
	fresh, err := c.sessions.Refresh(ctx, from)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refresh usage after try-on")
		return
	}

	c.mu.Lock()
	if gen != c.generation || c.state.Session == nil || c.state.Session.Token != from.Token {
		c.mu.Unlock()
		return
	}
	c.state.Session = fresh
	c.updateRemainingLocked()
	c.commit()
}

// Reset clears the selected images, result and error
func (c *Controller) Reset() {
	c.mu.Lock()
	released := c.clearTryOnLocked()
	c.commit()
	c.release(released)
}

// Restore reinstates a session from the stored token, if any. A screen that
// was signed in and can no longer restore is signed out as Logout would.
func (c *Controller) Restore(ctx context.Context) error {
	if c.sessions == nil {
		return ErrNotSignedIn
	}
	sess, err := c.sessions.Restore(ctx)

	c.mu.Lock()
	if err != nil || sess == nil {
		var released []*models.ImageAsset
		if c.state.Session != nil {
			released = c.signOutLocked()
		}
		c.state.View = ViewAuth
		if err != nil {
			c.state.Error = err.Error()
		}
		c.commit()
		c.release(released)
		return err
	}
	c.signedInLocked(sess)
	c.commit()
	return nil
}

// Login signs in and switches to the main view
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if c.sessions == nil {
		return ErrNotSignedIn
	}
	sess, err := c.sessions.Login(ctx, email, password)
	return c.afterAuth(sess, err)
}

// Register creates an account on planID and switches to the main view
func (c *Controller) Register(ctx context.Context, email, password, planID string) error {
	if c.sessions == nil {
		return ErrNotSignedIn
	}
	sess, err := c.sessions.Register(ctx, email, password, planID)
	return c.afterAuth(sess, err)
}

func (c *Controller) afterAuth(sess *models.Session, err error) error {
	c.mu.Lock()
	if err != nil {
		c.state.Error = err.Error()
		c.commit()
		return err
	}
	// a different account must not inherit the previous one's images or result
	var released []*models.ImageAsset
	if prev := c.state.Session; prev != nil && prev.Token != sess.Token {
		released = c.clearTryOnLocked()
	}
	c.signedInLocked(sess)
	c.commit()
	c.release(released)
	return nil
}

// Logout forgets the token and returns the screen to its initial state.
// Nothing from the previous account survives except the plan catalog.
func (c *Controller) Logout(ctx context.Context) error {
	var err error
	if c.sessions != nil {
		err = c.sessions.Logout(ctx)
	}

	c.mu.Lock()
	released := c.signOutLocked()
	c.commit()
	c.release(released)

	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// LoadPlans fetches the pricing catalog
func (c *Controller) LoadPlans(ctx context.Context) error {
	if c.sessions == nil {
		return ErrNotSignedIn
	}
	plans, err := c.sessions.FetchPlans(ctx)

	c.mu.Lock()
	if err != nil {
		c.state.Error = err.Error()
		c.commit()
		return err
	}
	c.state.Plans = plans
	c.updateRemainingLocked()
	c.commit()
	return nil
}

// Close cancels any pending auto-submit and releases previews. The screen
// rejects further transitions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	released := c.clearTryOnLocked()
	c.mu.Unlock()
	c.release(released)
}

// signOutLocked returns the screen to its initial state, keeping only the
// plan catalog, and returns the assets to release
func (c *Controller) signOutLocked() []*models.ImageAsset {
	released := c.clearTryOnLocked()
	plans := c.state.Plans
	c.state = c.initialState()
	c.state.InFlight = c.inFlight
	c.state.Plans = plans
	c.state.Quality = c.opts.Quality
	return released
}

func (c *Controller) signedInLocked(sess *models.Session) {
	c.state.Session = sess
	c.state.View = ViewMain
	c.state.Error = ""
	c.updateRemainingLocked()
}

func (c *Controller) updateRemainingLocked() {
	if left, limited := c.state.remaining(); limited {
		c.state.RemainingUsage = &left
	} else {
		c.state.RemainingUsage = nil
	}
}

// clearTryOnLocked drops images, result and error and returns the assets to release
func (c *Controller) clearTryOnLocked() []*models.ImageAsset {
	c.generation++
	c.stopAutoLocked()
	c.autoFired = ""
	released := []*models.ImageAsset{c.state.Person, c.state.Garment}
	c.state.Person = nil
	c.state.Garment = nil
	c.state.Result = nil
	c.state.Error = ""
	return released
}

func (c *Controller) release(assets []*models.ImageAsset) {
	for _, a := range assets {
		if a != nil {
			c.loader.Release(a)
		}
	}
}

// commit unlocks and publishes the new state
func (c *Controller) commit() {
	snapshot := c.state.copy()
	closed := c.closed
	c.mu.Unlock()
	if c.opts.OnChange != nil && !closed {
		c.opts.OnChange(snapshot)
	}
}

func encodePair(ctx context.Context, person, garment *models.ImageAsset) (*models.TryOnRequest, error) {
	var req models.TryOnRequest
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		req.PersonImage = person.Encode()
		if req.PersonImage == "" {
			return errors.New("person image is empty")
		}
		return nil
	})
	g.Go(func() error {
		req.GarmentImage = garment.Encode()
		if req.GarmentImage == "" {
			return errors.New("garment image is empty")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &req, nil
}

// interpret maps a backend answer, or the lack of one, onto a result
func interpret(requestID string, resp *models.TryOnResponse, err error) *models.TryOnResult {
	if err != nil {
		return models.NewTryOnFailure(requestID, err.Error())
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "Try-on failed"
		}
		return models.NewTryOnFailure(requestID, msg)
	}
	if resp.ResultImage == "" {
		return models.NewTryOnFailure(requestID, missingResultMessage)
	}

	result := &models.TryOnResult{Success: true, ResultImage: resp.ResultImage, RequestID: requestID}
	if resp.ProcessingTime != nil {
		result.ProcessingTime = *resp.ProcessingTime
	}
	if resp.Cost != nil {
		result.Cost = *resp.Cost
	}
	return result
}
