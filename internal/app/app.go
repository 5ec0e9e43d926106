package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/afonsojramos/discrakt/internal/clients"
	"github.com/afonsojramos/discrakt/internal/config"
	"github.com/afonsojramos/discrakt/internal/domain"
	"github.com/afonsojramos/discrakt/internal/handler"
	"github.com/afonsojramos/discrakt/internal/presence"
	"github.com/afonsojramos/discrakt/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	setupCheckTick  = time.Second
)

// Options configures the application. Zero values fall back to the default
// credentials path, the production API hosts and the log presenter.
type Options struct {
	ConfigPath string
	SetupAddr  string
	TraktURL   string
	TMDBURL    string
	Presenter  domain.Presenter
}

type App struct {
	opts       Options
	store      *config.Store
	trakt      *clients.TraktClient
	mediaSvc   *service.MediaService
	authorizer *service.Authorizer
	presenter  domain.Presenter
}

func New(opts Options) (*App, error) {
	store, err := config.Open(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	if opts.SetupAddr == "" {
		opts.SetupAddr = ":3000"
	}

	presenter := opts.Presenter
	if presenter == nil {
		presenter = presence.NewLogPresenter()
	}

	trakt := clients.NewTraktClient(clients.TraktConfig{
		BaseURL:     opts.TraktURL,
		ClientID:    store.ClientID(),
		Username:    store.Username(),
		AccessToken: store.AccessToken(),
	})
	tmdb := clients.NewTMDBClient(clients.TMDBConfig{
		BaseURL: opts.TMDBURL,
		APIKey:  store.TMDBToken(),
	})
	oauth := clients.NewOAuthClient(opts.TraktURL, store.ClientID(), nil)

	return &App{
		opts:       opts,
		store:      store,
		trakt:      trakt,
		mediaSvc:   service.NewMediaService(trakt, tmdb, store.Language()),
		authorizer: service.NewAuthorizer(oauth, store),
		presenter:  presenter,
	}, nil
}

// Run brings the application up and blocks until ctx is done. A missing
// username means the credentials file was never filled in, so the setup
// server runs first and the presence loop starts once authorization lands.
func (a *App) Run(ctx context.Context) error {
	if a.store.Username() == "" {
		if err := a.runSetup(ctx); err != nil {
			return fmt.Errorf("running setup: %w", err)
		}
		// Setup wrote credentials the clients were built without.
		a.trakt = clients.NewTraktClient(clients.TraktConfig{
			BaseURL:     a.opts.TraktURL,
			ClientID:    a.store.ClientID(),
			Username:    a.store.Username(),
			AccessToken: a.store.AccessToken(),
		})
		a.mediaSvc.SetLanguage(a.store.Language())
	}

	token, err := a.authorizer.EnsureAuthorized(ctx)
	if err != nil {
		return fmt.Errorf("ensuring authorization: %w", err)
	}
	if token != "" {
		a.trakt.SetAccessToken(token)
	}

	return a.runPresenceLoop(ctx)
}

// runSetup serves the credential submission surface until the device flow
// succeeds, then tears the server down.
func (a *App) runSetup(ctx context.Context) error {
	httpHandler := handler.NewHTTPHandler(ctx, a.store, a.authorizer)

	mux := http.NewServeMux()
	httpHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    a.opts.SetupAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", server.Addr).Info("setup server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithField("error", err).Error("setup server shutdown failed")
		}
	}()

	for {
		if a.authorizer.SetupComplete() {
			log.Info("setup complete")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return fmt.Errorf("setup server: %w", err)
		case <-time.After(setupCheckTick):
		}
	}
}
