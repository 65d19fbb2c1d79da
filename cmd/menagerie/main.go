package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/menagerie/pkg/api"
	"github.com/cbodonnell/menagerie/pkg/catalog"
	"github.com/cbodonnell/menagerie/pkg/config"
	"github.com/cbodonnell/menagerie/pkg/game"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/log"
	"github.com/cbodonnell/menagerie/pkg/repositories"
	"github.com/cbodonnell/menagerie/pkg/version"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level")
	rosterCache := flag.String("roster-cache", "", "JSON file of locally cached creatures used to seed an empty roster")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting menagerie version %s", version.Get())

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	repository, err := repositories.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		panic(fmt.Sprintf("Failed to open repository: %v", err))
	}
	defer repository.Close(context.Background())

	gameCatalog := catalog.Empty()
	if cfg.CatalogPath != "" {
		gameCatalog, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			panic(fmt.Sprintf("Failed to load catalog: %v", err))
		}
	}

	gameManager := game.NewGameManager(game.NewGameManagerOptions{
		Repository:    repository,
		Catalog:       gameCatalog,
		Slot:          cfg.SaveSlot,
		AutosaveDelay: cfg.AutosaveDelay,
		TickInterval:  cfg.TickInterval,
		Strict:        cfg.DevMode,
	})
	if err := gameManager.Load(ctx); err != nil {
		panic(fmt.Sprintf("Failed to load game: %v", err))
	}

	if *rosterCache != "" {
		local, err := readRosterCache(*rosterCache)
		if err != nil {
			log.Warn("Ignoring roster cache: %v", err)
		} else {
			outcome, err := gameManager.Hydrate(local)
			if err != nil {
				log.Error("Failed to hydrate roster: %v", err)
			}
			log.Info("Roster cache with %d creatures %s", len(local), outcome)
		}
	}

	server := api.NewAPIServer(api.NewAPIServerOptions{
		Host:           cfg.APIHost,
		Port:           cfg.APIPort,
		Game:           gameManager,
		AllowedOrigins: cfg.APIAllowedOrigins,
	})
	go server.Start()

	if err := gameManager.Start(ctx); err != nil {
		log.Error("Game manager stopped: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop server: %v", err)
	}
	if err := gameManager.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop game manager: %v", err)
	}
}

func readRosterCache(path string) ([]types.Creature, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var creatures []types.Creature
	if err := json.Unmarshal(data, &creatures); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return creatures, nil
}
