package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/brewbaked/insights/internal/app"
	"github.com/brewbaked/insights/internal/config"
	"github.com/brewbaked/insights/internal/logger"
	"github.com/brewbaked/insights/internal/server"
	"github.com/brewbaked/insights/internal/session"
	"github.com/brewbaked/insights/internal/source"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger.Init()

	catalog, err := source.Load(cfg.SourcesConfigPath)
	if err != nil {
		log.Fatalf("source catalog error: %v", err)
	}
	logger.Info("source catalog loaded", "sources", len(catalog.Sources))

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := app.New(cfg, catalog)
	sessions := session.NewManager(cfg.SessionTTL, cfg.DailyCallCap, cfg.Cooldown)
	srv := server.New(cfg, svc, sessions)

	logger.Info("insight engine listening", "addr", cfg.ListenAddr)
	if err := srv.Router().Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
