package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"kingassassins/internal/config"
	"kingassassins/internal/game"
	"kingassassins/internal/game/kingassassins"
	"kingassassins/internal/logging"
	"kingassassins/internal/server"
	"kingassassins/internal/session"
	"kingassassins/internal/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogPretty); err != nil {
		log.Fatal().Err(err).Msg("configure logging")
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer store.Close()

	registry := game.NewRegistry(kingassassins.Game{})

	mgr := session.NewManager(registry, store, session.Options{
		Seed:         cfg.Seed,
		BotMoveLimit: cfg.BotMoveLimit,
	})
	if err := mgr.Restore(); err != nil {
		log.Warn().Err(err).Msg("restore sessions")
	}

	go mgr.CleanupLoop(cfg.CleanupInterval, cfg.SessionMaxAge)

	srv := server.New(registry, mgr, cfg.ReadLimit)

	log.Info().Str("addr", cfg.Addr).Msg("listening")
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
