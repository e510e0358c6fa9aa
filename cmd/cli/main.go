package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/creditconsole/internal/buildinfo"
	"github.com/dmitrijs2005/creditconsole/internal/client/cli"
	"github.com/dmitrijs2005/creditconsole/internal/client/client"
	"github.com/dmitrijs2005/creditconsole/internal/client/config"
	"github.com/dmitrijs2005/creditconsole/internal/client/migrations"
	"github.com/dmitrijs2005/creditconsole/internal/client/notify"
	"github.com/dmitrijs2005/creditconsole/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/creditconsole/internal/client/services"
	"github.com/dmitrijs2005/creditconsole/internal/client/session"
	"github.com/dmitrijs2005/creditconsole/internal/dbx"
	"github.com/dmitrijs2005/creditconsole/internal/filex"
	"github.com/dmitrijs2005/creditconsole/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	store := session.NewStore(repo)
	printer := notify.NewPrinter(os.Stderr)

	var app *cli.App
	apiClient := client.New(cfg.APIBaseURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithNotifier(printer),
		client.WithLogger(logger.With("component", "http")),
		client.WithSessionExpiredHandler(func(ctx context.Context) { app.OnSessionExpired(ctx) }),
	)

	app = cli.NewApp(
		services.NewAuthService(apiClient, store),
		services.NewListService(apiClient, printer, logger, cfg.PageSize),
		logger,
		os.Stdin,
		os.Stdout,
	)

	logger.Debug(ctx, "console started", "api", cfg.APIBaseURL, "session_backend", cfg.SessionBackend)
	app.Run(ctx)
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config) (credentials.Repository, func(), error) {
	path, err := filex.EnsureParentDir(cfg.SessionPath)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.SessionBackend {
	case config.SessionBackendFile:
		return credentials.NewDiskvRepository(path), func() {}, nil
	default:
		db, err := dbx.OpenSQLite(ctx, path, migrations.Migrations)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing database: %w", err)
		}
		return credentials.NewSQLiteRepository(db), func() { _ = db.Close() }, nil
	}
}
