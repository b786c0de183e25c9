package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-credauth"
	"github.com/goliatone/go-credauth/activitymap"
	"github.com/goliatone/go-credauth/middleware/jwtware"
)

type serverConfig struct {
	Addr         string `env:"CREDAUTH_ADDR" envDefault:":8000"`
	DSN          string `env:"CREDAUTH_DSN" envDefault:"file::memory:?cache=shared"`
	SeedUser     string `env:"CREDAUTH_SEED_USER"`
	SeedPassword string `env:"CREDAUTH_SEED_PASSWORD"`
	LogLevel     string `env:"CREDAUTH_LOG_LEVEL" envDefault:"info"`
}

func main() {
	cfg := serverConfig{}
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse server environment", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg serverConfig, logger *slog.Logger) error {
	ctx := context.Background()
	authLogger := auth.NewSlogLogger(logger)
	provider := auth.ProviderFromLogger(authLogger)

	opts, err := auth.LoadOptionsFromEnv()
	if err != nil {
		return err
	}

	signing, err := auth.NewSigningConfigFromConfig(opts)
	if err != nil {
		return err
	}
	if signing.UsesDefaultSecret() {
		logger.Warn("SECRET_KEY is not set, using the development secret")
	}

	db, err := openDB(cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	users := auth.NewUsersRepository(db)
	if err := users.CreateSchema(ctx); err != nil {
		return err
	}

	hasher := auth.NewPasswordHasher(auth.WithHasherLogger(provider.GetLogger("auth.password_hasher")))
	sink := activitymap.Sink(func(_ context.Context, record activitymap.Record) error {
		logger.Info("activity", "verb", record.Verb, "actor", record.ActorID, "object", record.ObjectID,
			"metadata", print.MaybePrettyJSON(record.Metadata))
		return nil
	})

	userProvider := auth.NewUserProvider(users, hasher).
		WithLoggerProvider(provider).
		WithActivitySink(sink)

	if cfg.SeedUser != "" {
		if _, err := userProvider.RegisterUser(ctx, cfg.SeedUser, "", cfg.SeedPassword); err != nil && !auth.IsUsernameTaken(err) {
			return err
		}
	}

	tokens := auth.NewTokenService(signing,
		auth.WithDefaultTTL(opts.GetDefaultTokenTTL()),
		auth.WithTokenLogger(provider.GetLogger("auth.token_service")),
	)

	authenticator := auth.NewAuthenticator(userProvider, hasher, tokens, opts).
		WithLogger(provider.GetLogger("auth.authenticator")).
		WithActivitySink(sink)

	resolver := auth.NewIdentityResolver(tokens, userProvider).
		WithLogger(provider.GetLogger("auth.identity_resolver"))

	routes := auth.NewHTTPAuthenticator(authenticator, opts).
		WithRegistry(userProvider).
		WithLogger(provider.GetLogger("auth.http"))

	app := fiber.New(fiber.Config{
		AppName:               "credauthd",
		DisableStartupMessage: true,
		ErrorHandler:          routes.ErrorHandler,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	mwCfg := jwtware.ConfigFromAuth(opts, resolver)
	mwCfg.ErrorHandler = routes.ErrorHandler

	app.Post("/auth/token", routes.LoginHandler)
	app.Post("/auth/register", routes.RegisterHandler)
	app.Get("/users/me", jwtware.New(mwCfg), routes.MeHandler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case sig := <-waitExitSignal():
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	return app.ShutdownWithTimeout(5 * time.Second)
}

func openDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func waitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return ch
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
