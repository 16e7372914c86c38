package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/avatar"
	"github.com/MrEthical07/goContacts/contacts"
	"github.com/MrEthical07/goContacts/internal/config"
	"github.com/MrEthical07/goContacts/internal/httpapi"
	"github.com/MrEthical07/goContacts/internal/logging"
	"github.com/MrEthical07/goContacts/internal/memstore"
	"github.com/MrEthical07/goContacts/internal/postgres"
	"github.com/MrEthical07/goContacts/metrics/export/prometheus"
	"github.com/MrEthical07/goContacts/notify"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type App struct {
	httpServer *http.Server
	engine     *goContacts.Engine
	cleanup    []func() error
}

func newApp(ctx context.Context, s *config.Settings, log *logging.SlogLogger) (*App, error) {
	a := &App{}
	if err := a.init(ctx, s, log); err != nil {
		_ = a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, s *config.Settings, log *logging.SlogLogger) error {
	rdb, err := a.setupRedis(ctx, s, log)
	if err != nil {
		return err
	}
	store, repo, err := a.setupStore(ctx, s, log)
	if err != nil {
		return err
	}
	notifier, err := setupNotifier(s, log)
	if err != nil {
		return err
	}

	b := goContacts.New().
		WithConfig(s.Engine).
		WithCredentialStore(store).
		WithNotifier(notifier).
		WithLogger(log).
		WithDefaultAvatar(avatar.Gravatar)
	if rdb != nil {
		b = b.WithRedis(rdb)
	}
	if s.AvatarsEnabled() {
		uploader, err := avatar.NewS3(ctx, s.S3)
		if err != nil {
			return fmt.Errorf("avatar storage: %w", err)
		}
		b = b.WithAvatarStorage(uploader)
	} else {
		log.Warn(ctx, "S3 is not configured, avatar uploads are disabled")
	}

	a.engine, err = b.Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	deps := httpapi.Deps{
		Auth:           a.engine,
		Contacts:       contacts.NewService(repo, contacts.WithLogger(log)),
		Log:            log,
		MaxAvatarBytes: s.MaxAvatarBytes,
	}
	if s.Engine.Metrics.Enabled {
		deps.Metrics = prometheus.NewPrometheusExporter(a.engine).Handler()
	}
	if logging.ParseLevel(s.LogLevel) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	a.httpServer = &http.Server{
		Addr:              s.Addr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// setupRedis returns nil when nothing needs redis. In dev mode an embedded
// miniredis backs every redis feature.
func (a *App) setupRedis(ctx context.Context, s *config.Settings, log logging.Logger) (redis.UniversalClient, error) {
	addr := s.RedisAddr
	if s.Dev {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("embedded redis: %w", err)
		}
		a.cleanup = append(a.cleanup, func() error { mr.Close(); return nil })
		addr = mr.Addr()
		log.Info(ctx, "using embedded redis", "addr", addr)
	} else if !s.NeedsRedis() && !s.Engine.Security.RevokeOnLogout {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})
	a.cleanup = append(a.cleanup, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (a *App) setupStore(ctx context.Context, s *config.Settings, log logging.Logger) (goContacts.CredentialStore, contacts.Repository, error) {
	if s.Dev {
		log.Warn(ctx, "dev mode: identities and contacts are kept in memory")
		mem := memstore.New()
		return mem, mem.ContactRepository(), nil
	}

	db, err := postgres.Open(ctx, s.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	a.cleanup = append(a.cleanup, db.Close)
	if s.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, nil, err
		}
	}
	return postgres.NewIdentityStore(db), postgres.NewContactRepository(db), nil
}

func setupNotifier(s *config.Settings, log logging.Logger) (goContacts.Notifier, error) {
	renderer := notify.Renderer{Host: s.PublicBaseURL}
	if !s.MailEnabled() {
		log.Warn(context.Background(), "mail is not configured, emails are written to stdout")
		return notify.NewWriter(os.Stdout, renderer), nil
	}
	smtp, err := notify.NewSMTP(s.Mail, renderer, notify.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("mail: %w", err)
	}
	return smtp, nil
}

func (a *App) Run() error {
	return a.httpServer.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)
	return errors.Join(err, a.close())
}

// close releases resources in reverse order of acquisition.
func (a *App) close() error {
	if a.engine != nil {
		a.engine.Close()
	}
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanup = nil
	return errors.Join(errs...)
}
