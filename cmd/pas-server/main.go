package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/adapters/discord"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/app"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/buildinfo"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/config"
)

func main() {
	configPath := flag.String("config", envOr("PAS_CONFIG_PATH", "config.yaml"), "Chemin du fichier de config YAML")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "pas-server").Logger()
	log.Logger = logger

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Info().Interface("build", buildinfo.Current()).Str("db", cfg.History.DBPath).Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.History.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	bus := memorybus.New()
	history := sqlite.NewHistoryRepository(db.SQL)

	catalog := app.NewCatalogCache(logger.With().Str("component", "catalog").Logger(), cfg.Mapping)
	resolver := app.NewIdentifierResolver(logger.With().Str("component", "resolver").Logger(), catalog, cfg.Mapping.OverridePath)
	tracker := app.NewAniListService(cfg.AniList).WithEndpoint(cfg.AniList.Endpoint)
	reconciler := app.NewProgressReconciler(logger.With().Str("component", "reconciler").Logger(), tracker, cfg.Plex.Account)
	filter := app.NewEventFilter(cfg.Plex)
	notifier := discord.NewNotifier(cfg.Notify)

	processor := app.NewProcessor(
		logger.With().Str("component", "processor").Logger(),
		filter, resolver, reconciler, notifier, history, bus,
	)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := httpapi.NewServer(logger, processor, resolver, history, bus)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	logger.Info().Msg("bye")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
