package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/auth"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/game"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/net/ws"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/session"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/telemetry"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/logging"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/logging/sinks"
)

// App wires the platform together: variant catalog, room registry, transport,
// and the event log pipeline.
type App struct {
	cfg      Config
	logger   telemetry.Logger
	counters *telemetry.Counters
	router   *logging.Router
	registry *session.Registry
	resolver auth.TokenResolver
}

// New builds the application from configuration.
func New(cfg Config) (*App, error) {
	logger := telemetry.WrapLogger(log.New(os.Stderr, "", log.LstdFlags))
	counters := telemetry.NewCounters()

	router, err := buildRouter(cfg.loggingConfig())
	if err != nil {
		return nil, fmt.Errorf("event log pipeline: %w", err)
	}

	catalog, err := loadCatalog(cfg.UnitCatalogPath)
	if err != nil {
		return nil, err
	}

	variants := game.NewRegistry()
	if err := variants.Register(game.NewWargameVariant(cfg.warConfig(catalog))); err != nil {
		return nil, err
	}
	if err := variants.Register(game.NewEchoVariant()); err != nil {
		return nil, err
	}

	registry := session.NewRegistry(session.Deps{
		Variants:     variants,
		Logger:       logger,
		Publisher:    router,
		Counters:     counters,
		WarConfig:    cfg.warConfig(catalog),
		AIBudget:     cfg.AIBudget,
		MailboxSize:  cfg.MailboxSize,
		TurnAutoSkip: cfg.TurnAutoSkip,
	})

	var resolver auth.TokenResolver
	switch cfg.AuthMode {
	case "passthrough":
		resolver = auth.PassthroughResolver{}
	default:
		resolver = auth.NewMemoryStore()
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		counters: counters,
		router:   router,
		registry: registry,
		resolver: resolver,
	}, nil
}

// Run serves until ctx is canceled, then drains gracefully.
func (a *App) Run(ctx context.Context) error {
	handler := ws.NewHandler(a.registry, a.resolver, a.logger, a.counters)
	server := &http.Server{
		Addr:    a.cfg.HTTPAddr,
		Handler: a.routes(handler),
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Printf("listening on %s", a.cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	a.registry.Shutdown()
	if closeErr := a.router.Close(shutdownCtx); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func buildRouter(cfg logging.Config) (*logging.Router, error) {
	named := []logging.NamedSink{
		{Name: "console", Sink: sinks.NewConsole(os.Stdout)},
	}
	if cfg.HasSink("json") {
		f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		named = append(named, logging.NamedSink{Name: "json", Sink: sinks.NewJSON(f, cfg.JSON.FlushInterval)})
	}
	if cfg.HasSink("nats") {
		sink, err := sinks.NewNATS(cfg.NATS)
		if err != nil {
			return nil, fmt.Errorf("connect audit stream: %w", err)
		}
		named = append(named, logging.NamedSink{Name: "nats", Sink: sink})
	}
	return logging.NewRouter(logging.SystemClock{}, cfg, named)
}

func loadCatalog(path string) (*game.Catalog, error) {
	if path == "" {
		return game.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open unit catalog: %w", err)
	}
	defer f.Close()
	catalog, err := game.LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("unit catalog %s: %w", path, err)
	}
	return catalog, nil
}
