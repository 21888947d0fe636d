package screen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/raushankrgupta/fitly-client/api"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	mu       sync.Mutex
	released []string
}

func (f *fakeLoader) Load(ctx context.Context, slot models.Slot, source string) (*models.ImageAsset, error) {
	if source == "missing.jpg" {
		return nil, errors.New("open missing.jpg: no such file or directory")
	}
	id := uuid.NewString()
	return &models.ImageAsset{ID: id, Slot: slot, Source: source, Data: []byte(source), PreviewURL: "preview://" + id}, nil
}

func (f *fakeLoader) Release(asset *models.ImageAsset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, asset.ID)
}

func (f *fakeLoader) releasedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

type fakeTryOn struct {
	mu       sync.Mutex
	calls    int
	lastReq  models.TryOnRequest
	lastAuth string
	resp     *models.TryOnResponse
	err      error
	gate     chan struct{}
	entered  chan struct{}
}

func (f *fakeTryOn) VirtualTryOn(ctx context.Context, token, requestID string, req *models.TryOnRequest) (*models.TryOnResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = *req
	f.lastAuth = token
	gate, entered := f.gate, f.entered
	resp, err := f.resp, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return resp, err
}

func (f *fakeTryOn) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTryOn) request() models.TryOnRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

type fakeSessions struct {
	restored    *models.Session
	restoreErr  error
	loginErr    error
	refreshed   *models.Session
	plans       map[string]models.PricingPlan
	logoutCalls int
}

func (f *fakeSessions) Restore(ctx context.Context) (*models.Session, error) {
	return f.restored, f.restoreErr
}

func (f *fakeSessions) Refresh(ctx context.Context, sess *models.Session) (*models.Session, error) {
	return f.refreshed, nil
}

func (f *fakeSessions) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.Session{Token: "tok", Email: email, Plan: "free", DailyUsage: 1}, nil
}

func (f *fakeSessions) Register(ctx context.Context, email, password, planID string) (*models.Session, error) {
	return &models.Session{Token: "new", Email: email, Plan: planID}, nil
}

func (f *fakeSessions) Logout(ctx context.Context) error {
	f.logoutCalls++
	return nil
}

func (f *fakeSessions) FetchPlans(ctx context.Context) (map[string]models.PricingPlan, error) {
	return f.plans, nil
}

func catalog() map[string]models.PricingPlan {
	return map[string]models.PricingPlan{
		"free":     {ID: "free", DisplayName: "Free", DailyLimit: 3},
		"business": {ID: "business", DisplayName: "Business", DailyLimit: models.UnlimitedDailyLimit},
	}
}

func f64(v float64) *float64 { return &v }

func successResponse() *models.TryOnResponse {
	return &models.TryOnResponse{Success: true, ResultImage: "X", ProcessingTime: f64(4.2), Cost: f64(0.1)}
}

func selectPair(t *testing.T, c *Controller) (*models.ImageAsset, *models.ImageAsset) {
	t.Helper()
	ctx := context.Background()
	person, err := c.SelectImage(ctx, models.SlotPerson, "me.jpg")
	require.NoError(t, err)
	garment, err := c.SelectImage(ctx, models.SlotGarment, "shirt.png")
	require.NoError(t, err)
	return person, garment
}

func TestSubmitSuccess(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, nil, Options{Quality: "high"})
	defer c.Close()
	selectPair(t, c)

	result, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, tryOn.callCount())
	assert.True(t, result.Success)
	assert.Equal(t, "X", result.ResultImage)
	assert.Equal(t, 4.2, result.ProcessingTime)
	assert.Equal(t, 0.1, result.Cost)
	assert.NotEmpty(t, result.RequestID)

	req := tryOn.request()
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("me.jpg")), req.PersonImage)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("shirt.png")), req.GarmentImage)
	assert.Equal(t, "high", req.Quality)
	assert.Empty(t, tryOn.lastAuth)

	state := c.Snapshot()
	assert.False(t, state.InFlight)
	assert.Equal(t, result, state.Result)
	assert.Empty(t, state.Error)
}

func TestSubmitBackendFailure(t *testing.T) {
	tryOn := &fakeTryOn{resp: &models.TryOnResponse{Success: false, Error: "no face detected"}}
	c := New(&fakeLoader{}, tryOn, nil, Options{})
	defer c.Close()
	selectPair(t, c)

	result, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "no face detected", result.ErrorMessage)

	state := c.Snapshot()
	assert.Equal(t, "no face detected", state.Error)
	assert.False(t, state.InFlight)
}

func TestSubmitSuccessWithoutImageIsFailure(t *testing.T) {
	tryOn := &fakeTryOn{resp: &models.TryOnResponse{Success: true}}
	c := New(&fakeLoader{}, tryOn, nil, Options{})
	defer c.Close()
	selectPair(t, c)

	result, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, missingResultMessage, result.ErrorMessage)
}

func TestSubmitTimeoutClearsInFlight(t *testing.T) {
	tryOn := &fakeTryOn{err: fmt.Errorf("%w after 2m0s", api.ErrTimeout)}
	c := New(&fakeLoader{}, tryOn, nil, Options{})
	defer c.Close()
	selectPair(t, c)

	result, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "request timed out after 2m0s", result.ErrorMessage)
	assert.False(t, c.Snapshot().InFlight)

	// the screen accepts the next submit
	tryOn.mu.Lock()
	tryOn.err, tryOn.resp = nil, successResponse()
	tryOn.mu.Unlock()
	result, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestSubmitStructuredHTTPError(t *testing.T) {
	tryOn := &fakeTryOn{err: &api.APIError{StatusCode: 500, Message: "model unavailable"}}
	c := New(&fakeLoader{}, tryOn, nil, Options{})
	defer c.Close()
	selectPair(t, c)

	result, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "model unavailable", result.ErrorMessage)
}

func TestSubmitRequiresBothImages(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, nil, Options{})
	defer c.Close()

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrMissingImages)

	_, err = c.SelectImage(context.Background(), models.SlotPerson, "me.jpg")
	require.NoError(t, err)
	_, err = c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrMissingImages)
	assert.Zero(t, tryOn.callCount())
}

func TestSubmitIsSingleFlight(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse(), gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := New(&fakeLoader{}, tryOn, nil, Options{})
	defer c.Close()
	selectPair(t, c)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-tryOn.entered
	assert.True(t, c.Snapshot().InFlight)

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)

	close(tryOn.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, tryOn.callCount())
	assert.False(t, c.Snapshot().InFlight)
}

func TestResetDiscardsOutstandingResult(t *testing.T) {
	loader := &fakeLoader{}
	tryOn := &fakeTryOn{resp: successResponse(), gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := New(loader, tryOn, nil, Options{})
	defer c.Close()
	person, garment := selectPair(t, c)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-tryOn.entered

	c.Reset()
	close(tryOn.gate)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	state := c.Snapshot()
	assert.Nil(t, state.Result)
	assert.Nil(t, state.Person)
	assert.False(t, state.InFlight)
	assert.ElementsMatch(t, []string{person.ID, garment.ID}, loader.releasedIDs())
}

func TestSelectImageReleasesPreviousPreview(t *testing.T) {
	loader := &fakeLoader{}
	c := New(loader, &fakeTryOn{}, nil, Options{})
	defer c.Close()

	first, err := c.SelectImage(context.Background(), models.SlotGarment, "a.png")
	require.NoError(t, err)
	second, err := c.SelectImage(context.Background(), models.SlotGarment, "b.png")
	require.NoError(t, err)

	assert.Equal(t, []string{first.ID}, loader.releasedIDs())
	assert.Equal(t, second, c.Snapshot().Garment)
}

func TestSelectImageErrorIsShown(t *testing.T) {
	c := New(&fakeLoader{}, &fakeTryOn{}, nil, Options{})
	defer c.Close()

	_, err := c.SelectImage(context.Background(), models.SlotPerson, "missing.jpg")
	require.Error(t, err)
	state := c.Snapshot()
	assert.Contains(t, state.Error, "no such file")
	assert.Nil(t, state.Person)
}

func TestUsageAccounting(t *testing.T) {
	sessions := &fakeSessions{plans: catalog()}
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, sessions, Options{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "a@b.c", "pw"))
	require.NoError(t, c.LoadPlans(ctx))
	left, limited := c.RemainingUsage()
	assert.True(t, limited)
	assert.Equal(t, 2, left)

	selectPair(t, c)
	_, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tryOn.lastAuth)

	state := c.Snapshot()
	assert.Equal(t, 2, state.Session.DailyUsage)
	require.NotNil(t, state.RemainingUsage)
	assert.Equal(t, 1, *state.RemainingUsage)

	_, err = c.Submit(ctx)
	require.NoError(t, err)
	left, _ = c.RemainingUsage()
	assert.Equal(t, 0, left)

	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrUsageExhausted)
	assert.Equal(t, 2, tryOn.callCount())
}

func TestUnlimitedPlanNeverBlocks(t *testing.T) {
	sessions := &fakeSessions{plans: catalog()}
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, sessions, Options{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "n@b.c", "pw", "business"))
	require.NoError(t, c.LoadPlans(ctx))
	selectPair(t, c)
	for i := 0; i < 5; i++ {
		_, err := c.Submit(ctx)
		require.NoError(t, err)
	}

	_, limited := c.RemainingUsage()
	assert.False(t, limited)
	assert.Nil(t, c.Snapshot().RemainingUsage)
	assert.Equal(t, 5, tryOn.callCount())
}

func TestRefreshUsageAfterTryOn(t *testing.T) {
	sessions := &fakeSessions{
		plans:     catalog(),
		refreshed: &models.Session{Token: "tok", Email: "a@b.c", Plan: "free", DailyUsage: 3},
	}
	c := New(&fakeLoader{}, &fakeTryOn{resp: successResponse()}, sessions, Options{RefreshUsageAfterTryOn: true})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "a@b.c", "pw"))
	require.NoError(t, c.LoadPlans(ctx))
	selectPair(t, c)
	_, err := c.Submit(ctx)
	require.NoError(t, err)

	state := c.Snapshot()
	assert.Equal(t, 3, state.Session.DailyUsage)
	require.NotNil(t, state.RemainingUsage)
	assert.Equal(t, 0, *state.RemainingUsage)
}

func TestLogoutResetsEverything(t *testing.T) {
	loader := &fakeLoader{}
	sessions := &fakeSessions{plans: catalog()}
	c := New(loader, &fakeTryOn{resp: successResponse()}, sessions, Options{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "a@b.c", "pw"))
	require.NoError(t, c.LoadPlans(ctx))
	person, garment := selectPair(t, c)
	_, err := c.Submit(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, 1, sessions.logoutCalls)

	state := c.Snapshot()
	assert.Equal(t, ViewAuth, state.View)
	assert.Nil(t, state.Session)
	assert.Nil(t, state.Person)
	assert.Nil(t, state.Garment)
	assert.Nil(t, state.Result)
	assert.Empty(t, state.Error)
	assert.Nil(t, state.RemainingUsage)
	assert.Len(t, state.Plans, 2)
	assert.ElementsMatch(t, []string{person.ID, garment.ID}, loader.releasedIDs())
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	sessions := &fakeSessions{restored: &models.Session{Token: "t", Email: "a@b.c", Plan: "free"}}
	c := New(&fakeLoader{}, &fakeTryOn{}, sessions, Options{})
	assert.Equal(t, ViewAuth, c.Snapshot().View)
	require.NoError(t, c.Restore(ctx))
	assert.Equal(t, ViewMain, c.Snapshot().View)
	c.Close()

	c = New(&fakeLoader{}, &fakeTryOn{}, &fakeSessions{}, Options{})
	require.NoError(t, c.Restore(ctx))
	assert.Equal(t, ViewAuth, c.Snapshot().View)
	c.Close()

	c = New(&fakeLoader{}, &fakeTryOn{}, &fakeSessions{restoreErr: errors.New("connection refused")}, Options{})
	assert.Error(t, c.Restore(ctx))
	state := c.Snapshot()
	assert.Equal(t, ViewAuth, state.View)
	assert.Nil(t, state.Session)
	c.Close()
}

func TestRestoreSignsOutDeadSession(t *testing.T) {
	loader := &fakeLoader{}
	sessions := &fakeSessions{plans: catalog()}
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(loader, tryOn, sessions, Options{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "a@b.c", "pw"))
	require.NoError(t, c.LoadPlans(ctx))
	person, garment := selectPair(t, c)

	require.NoError(t, c.Restore(ctx))
	state := c.Snapshot()
	assert.Equal(t, ViewAuth, state.View)
	assert.Nil(t, state.Session)
	assert.Nil(t, state.RemainingUsage)
	assert.Nil(t, state.Person)
	assert.Nil(t, state.Garment)
	assert.Len(t, state.Plans, 2)
	assert.ElementsMatch(t, []string{person.ID, garment.ID}, loader.releasedIDs())

	// nothing is sent with the dead token
	selectPair(t, c)
	_, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Empty(t, tryOn.lastAuth)
}

func TestRestoreFailureSignsOut(t *testing.T) {
	sessions := &fakeSessions{}
	c := New(&fakeLoader{}, &fakeTryOn{}, sessions, Options{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "a@b.c", "pw"))
	selectPair(t, c)

	sessions.restoreErr = errors.New("connection refused")
	assert.Error(t, c.Restore(ctx))
	state := c.Snapshot()
	assert.Equal(t, ViewAuth, state.View)
	assert.Nil(t, state.Session)
	assert.Nil(t, state.Person)
	assert.Equal(t, "connection refused", state.Error)
}

func TestAuthAsAnotherAccountClearsTryOn(t *testing.T) {
	loader := &fakeLoader{}
	c := New(loader, &fakeTryOn{resp: successResponse()}, &fakeSessions{}, Options{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "a@b.c", "pw"))
	person, garment := selectPair(t, c)
	_, err := c.Submit(ctx)
	require.NoError(t, err)

	// same token again keeps the screen as it is
	require.NoError(t, c.Login(ctx, "a@b.c", "pw"))
	assert.NotNil(t, c.Snapshot().Result)

	require.NoError(t, c.Register(ctx, "n@b.c", "pw", "free"))
	state := c.Snapshot()
	assert.Equal(t, "n@b.c", state.Session.Email)
	assert.Nil(t, state.Person)
	assert.Nil(t, state.Garment)
	assert.Nil(t, state.Result)
	assert.ElementsMatch(t, []string{person.ID, garment.ID}, loader.releasedIDs())
}

func TestLoginFailureStaysOnAuthView(t *testing.T) {
	sessions := &fakeSessions{loginErr: &api.APIError{StatusCode: 401, Message: "Incorrect email or password"}}
	c := New(&fakeLoader{}, &fakeTryOn{}, sessions, Options{})
	defer c.Close()

	err := c.Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	state := c.Snapshot()
	assert.Equal(t, ViewAuth, state.View)
	assert.Equal(t, "Incorrect email or password", state.Error)
}

func TestOnChangeSeesEveryTransition(t *testing.T) {
	var mu sync.Mutex
	var views []bool
	c := New(&fakeLoader{}, &fakeTryOn{resp: successResponse()}, nil, Options{
		OnChange: func(s State) {
			mu.Lock()
			defer mu.Unlock()
			views = append(views, s.InFlight)
		},
	})
	defer c.Close()
	selectPair(t, c)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// two selects, in flight, result, cleared
	assert.Equal(t, []bool{false, false, true, true, false}, views)
}

func TestAutoSubmitFiresOncePerPair(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, nil, Options{AutoSubmit: true, AutoSubmitDelay: 20 * time.Millisecond})
	defer c.Close()

	selectPair(t, c)
	assert.Eventually(t, func() bool { return tryOn.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return tryOn.callCount() > 1 }, 150*time.Millisecond, 10*time.Millisecond)

	// a new garment is a new pair
	_, err := c.SelectImage(context.Background(), models.SlotGarment, "dress.png")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return tryOn.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return tryOn.callCount() > 2 }, 150*time.Millisecond, 10*time.Millisecond)
}

func TestAutoSubmitRestartsWhenAssetChanges(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, nil, Options{AutoSubmit: true, AutoSubmitDelay: 100 * time.Millisecond})
	defer c.Close()

	selectPair(t, c)
	_, err := c.SelectImage(context.Background(), models.SlotPerson, "someone-else.jpg")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return tryOn.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("someone-else.jpg")), tryOn.request().PersonImage)
	assert.Never(t, func() bool { return tryOn.callCount() > 1 }, 250*time.Millisecond, 10*time.Millisecond)
}

func TestAutoSubmitSkippedAfterManualSubmit(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, nil, Options{AutoSubmit: true, AutoSubmitDelay: 50 * time.Millisecond})
	defer c.Close()

	selectPair(t, c)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Never(t, func() bool { return tryOn.callCount() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestAutoSubmitCancelledByResetAndClose(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, nil, Options{AutoSubmit: true, AutoSubmitDelay: 30 * time.Millisecond})
	selectPair(t, c)
	c.Reset()
	assert.Never(t, func() bool { return tryOn.callCount() > 0 }, 150*time.Millisecond, 10*time.Millisecond)

	selectPair(t, c)
	c.Close()
	assert.Never(t, func() bool { return tryOn.callCount() > 0 }, 150*time.Millisecond, 10*time.Millisecond)

	_, err := c.SelectImage(context.Background(), models.SlotPerson, "me.jpg")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAutoSubmitRearmsAfterInFlightRefusal(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse(), gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	outcomes := make(chan error, 4)
	c := New(&fakeLoader{}, tryOn, nil, Options{
		AutoSubmit:      true,
		AutoSubmitDelay: 50 * time.Millisecond,
		OnAutoSubmit:    func(r *models.TryOnResult, err error) { outcomes <- err },
	})
	defer c.Close()

	selectPair(t, c)
	go c.Submit(context.Background())
	<-tryOn.entered

	dress, err := c.SelectImage(context.Background(), models.SlotGarment, "dress.png")
	require.NoError(t, err)
	select {
	case err := <-outcomes:
		assert.ErrorIs(t, err, ErrInFlight)
	case <-time.After(time.Second):
		t.Fatal("auto-submit timer did not fire")
	}

	close(tryOn.gate)
	assert.Eventually(t, func() bool { return tryOn.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, base64.StdEncoding.EncodeToString(dress.Data), tryOn.request().GarmentImage)
	assert.Never(t, func() bool { return tryOn.callCount() > 2 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestSetQualityAppliesToNextSubmit(t *testing.T) {
	tryOn := &fakeTryOn{resp: successResponse()}
	c := New(&fakeLoader{}, tryOn, nil, Options{Quality: "standard"})
	defer c.Close()
	selectPair(t, c)

	c.SetQuality("high")
	assert.Equal(t, "high", c.Snapshot().Quality)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "high", tryOn.request().Quality)
}
