package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/raid-controller/internal/application"
	"github.com/example/raid-controller/internal/config"
	httptransport "github.com/example/raid-controller/internal/http"
	"github.com/example/raid-controller/internal/persistence/sqlite"
	"github.com/example/raid-controller/internal/persistence/sqlite/migration"
	"github.com/example/raid-controller/internal/session"
	"github.com/example/raid-controller/internal/transport/ws"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		logger.Error("raidctl stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	flags := flag.NewFlagSet("raidctl", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	hashToken := flags.String("hash-token", "", "print the argon2id hash of the given admin token and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *hashToken != "" {
		encoded, err := application.HashToken(*hashToken, application.DefaultArgon2idParams)
		if err != nil {
			return fmt.Errorf("hash token: %w", err)
		}
		_, err = fmt.Fprintln(stdout, encoded)
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	return app.serve(ctx)
}

// app is the wired process: storage, the raid service, the notice hub and
// the HTTP server in front of them.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	storage *sqlite.Storage
	service *application.RaidService
	hub     *ws.Hub
	server  *http.Server
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	verifier, err := application.NewTokenVerifier(cfg.AdminTokenHash)
	if err != nil {
		return nil, fmt.Errorf("admin token hash: %w", err)
	}

	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	startup, err := application.ResolveStartup(ctx, application.StartupParams{
		RulesPath: cfg.RulesPath,
		LastWipe:  cfg.LastWipe,
		Logger:    logger,
	}, storage.Wipes(), storage.RuleSets())
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("resolve startup state: %w", err)
	}

	hub := ws.NewHub(logger)
	service, err := application.NewRaidService(application.RaidServiceOptions{
		Rules:    startup.Rules,
		RulesID:  startup.RulesID,
		Wipes:    storage.Wipes(),
		RuleSets: storage.RuleSets(),
		Notifier: hub,
		Location: cfg.Location,
		LastWipe: startup.LastWipe,
		Logger:   logger,
	})
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("build raid service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions: httptransport.NewSessionHandler(service, logger),
		Damage:   httptransport.NewDamageHandler(service, logger),
		Admin:    httptransport.NewAdminHandler(service, logger),
		Notices:  hub.Handler(),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireToken(verifier, logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &app{cfg: cfg, logger: logger, storage: storage, service: service, hub: hub, server: server}, nil
}

// serve runs the tick loop and the HTTP server until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		tickLoop(ctx, a.service, a.cfg.TickInterval)
	}()

	go func() {
		<-ctx.Done()
		a.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("raid controller listening", "addr", a.server.Addr, "timezone", a.cfg.Location.String(), "tick_interval", a.cfg.TickInterval)
	err := a.server.ListenAndServe()
	cancel()
	<-loopDone
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func (a *app) close() {
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

type ticker interface {
	Tick(ctx context.Context) []session.Notice
}

// tickLoop drives every session once per interval until ctx is done.
func tickLoop(ctx context.Context, t ticker, interval time.Duration) {
	timer := time.NewTicker(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			t.Tick(ctx)
		}
	}
}
