package cli

import (
	"context"
	"fmt"

	"github.com/raushankrgupta/fitly-client/api"
	"github.com/raushankrgupta/fitly-client/config"
	"github.com/raushankrgupta/fitly-client/intake"
	"github.com/raushankrgupta/fitly-client/screen"
	"github.com/raushankrgupta/fitly-client/session"
	"github.com/raushankrgupta/fitly-client/store"
	"github.com/raushankrgupta/fitly-client/utils"
	"github.com/rs/zerolog/log"
)

// app holds the collaborators every command needs
type app struct {
	client  *api.Client
	store   store.Store
	tracker *session.Tracker
	loader  *intake.Loader
	closers []func()
}

func newApp(ctx context.Context) (*app, error) {
	baseURL := valueOr(apiFlag, config.APIBaseURL)
	client := api.NewClient(baseURL,
		api.WithTryOnPath(config.TryOnPath),
		api.WithTimeouts(config.TryOnTimeout, config.AuthTimeout),
	)

	a := &app{client: client}
	s, err := a.openStore(ctx, baseURL)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = s
	a.tracker = session.NewTracker(client, s)

	utils.S3Region = config.AWSRegion
	a.loader = intake.NewLoader(config.MaxImageBytes, nil)

	log.Debug().Str("api", client.BaseURL()).Msg("Client ready")
	return a, nil
}

func (a *app) openStore(ctx context.Context, namespace string) (store.Store, error) {
	kind, err := store.ParseKind(valueOr(storeFlag, config.TokenStore))
	if err != nil {
		return nil, err
	}

	switch kind {
	case store.KindMemory:
		return store.NewMemoryStore(), nil
	case store.KindMongo:
		if err := utils.ConnectMongo(ctx, config.MongoURI); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := utils.DisconnectMongo(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to disconnect from MongoDB")
			}
		})
		coll, err := utils.GetCollection(config.MongoDatabase, store.CollectionName)
		if err != nil {
			return nil, err
		}
		return store.NewMongoStore(coll, namespace), nil
	default:
		return store.NewFileStore(config.TokenFile), nil
	}
}

func (a *app) newScreen(opts screen.Options) *screen.Controller {
	if opts.Quality == "" {
		opts.Quality = config.TryOnQuality
	}
	if opts.AutoSubmitDelay == 0 {
		opts.AutoSubmitDelay = config.AutoSubmitDelay
	}
	opts.RefreshUsageAfterTryOn = opts.RefreshUsageAfterTryOn || config.RefreshUsageAfterTryOn
	return screen.New(a.loader, a.client, a.tracker, opts)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// withApp builds the app for one command and tears it down afterwards
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.close()
	return fn(a)
}

func valueOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
