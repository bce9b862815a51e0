package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	driveadapter "github.com/ericfisherdev/sitepanel/internal/adapter/driven/drive"
	pgadapter "github.com/ericfisherdev/sitepanel/internal/adapter/driven/postgres"
	sqliteadapter "github.com/ericfisherdev/sitepanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/sitepanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/sitepanel/internal/application"
	"github.com/ericfisherdev/sitepanel/internal/config"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"postgres", cfg.HasPostgres(),
		"drive", cfg.HasDrive(),
		"wizard_steps", cfg.WizardSteps,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the local database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	checks := []application.HealthCheck{{Name: "sqlite", Required: true, Check: db.Ping}}

	// 4. Customer store: hosted Postgres when configured, local sqlite otherwise.
	var customerStore driven.CustomerStore = sqliteadapter.NewCustomerRepo(db)
	if cfg.HasPostgres() {
		pg, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		customerStore = pgadapter.NewCustomerRepo(pg)
		checks = append(checks, application.HealthCheck{Name: "postgres", Required: true, Check: pg.PingContext})
		slog.Info("customers stored in postgres")
	}

	// 5. Credentials need the encryption key; without it the endpoints answer 503.
	var credentialStore driven.CredentialStore
	if cfg.SecretKey != nil {
		credentialStore = sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	} else {
		slog.Warn("SITEPANEL_SECRET_KEY not set, credential storage disabled")
	}

	// 6. Application services.
	logger := slog.Default()
	drafts := application.NewDraftStore(sqliteadapter.NewDraftRepo(db), logger)
	customers := application.NewCustomerService(customerStore, drafts, cfg.WizardSteps, logger)

	thresholds := application.DefaultMatchThresholds()
	if cfg.MatchConfig != nil {
		if thresholds, err = application.ParseMatchThresholds(cfg.MatchConfig); err != nil {
			return err
		}
	}

	// 7. Drive folder linking (optional).
	var (
		searcher driven.FolderSearcher
		creator  driven.FolderCreator
	)
	if cfg.HasDrive() {
		client, err := driveadapter.NewClient(ctx, cfg.DriveCredentialsFile, driveadapter.Options{
			RootFolderID: cfg.DriveRootFolderID,
			Subfolders:   cfg.DriveSubfolders,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		searcher, creator = client, client
		checks = append(checks, application.HealthCheck{Name: "drive", Check: client.Ping})
		slog.Info("drive client created", "root_folder", cfg.DriveRootFolderID)
	} else {
		slog.Info("no drive credentials configured, folder recommendations will suggest new folders")
	}

	folders := application.NewFolderService(customers, searcher, creator, application.NewFolderMatcher(thresholds), logger).
		WithSettings(sqliteadapter.NewSettingsRepo(db))
	if err := folders.LoadThresholds(ctx); err != nil {
		slog.Warn("stored match thresholds ignored", "error", err)
	}

	// 8. Wizard sessions and their idle sweeper.
	wizards := application.NewWizardRegistry()
	sweeper := application.NewSweepService(wizards, cfg.SweepInterval, cfg.WizardIdleTimeout, logger)
	go sweeper.Start(ctx)

	healthSvc := application.NewHealthService(wizards, checks...)

	// 9. HTTP server.
	apiHandler := httphandler.NewHandler(customers, folders, credentialStore, wizards, healthSvc, logger).
		WithContracts(sqliteadapter.NewContractRepo(db))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("sitepanel started", "listen_addr", cfg.ListenAddr)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func openPostgres(ctx context.Context, url string) (*sql.DB, error) {
	pg, err := pgadapter.Open(ctx, pgadapter.DefaultConfig(url))
	if err != nil {
		return nil, err
	}
	if err := pgadapter.RunMigrations(pg); err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}
