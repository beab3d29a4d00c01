package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/beamchat/beamchat-server/internal/auth"
	"github.com/beamchat/beamchat-server/internal/config"
	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/media"
	"github.com/beamchat/beamchat-server/internal/service/groups"
	"github.com/beamchat/beamchat-server/internal/service/messages"
	"github.com/beamchat/beamchat-server/internal/service/users"
	"github.com/beamchat/beamchat-server/internal/store"
	"github.com/beamchat/beamchat-server/internal/store/sqlite"
	transporthttp "github.com/beamchat/beamchat-server/internal/transport/http"
)

// App wires together storage, services, the live coordination layer and the
// HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	uploader, err := newUploader(ctx, cfg.Media, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init media: %w", err)
	}

	registry := core.NewRegistry()
	rooms := core.NewRooms()
	relay := core.NewRelay(registry, rooms)

	deps := transporthttp.Deps{
		Auth:     authService,
		Users:    users.New(st, uploader),
		Messages: messages.New(st, relay, uploader),
		Groups:   groups.New(st, relay, uploader),
		Registry: registry,
		Rooms:    rooms,
		Relay:    relay,
	}
	server := transporthttp.NewServer(deps, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

func newUploader(ctx context.Context, cfg config.Media, logger *zerolog.Logger) (media.Uploader, error) {
	if cfg.Endpoint == "" {
		logger.Info().Msg("media backend not configured, image uploads disabled")
		return media.Disabled{}, nil
	}

	s3, err := media.NewS3(media.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("media backend initialized")
	return s3, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
