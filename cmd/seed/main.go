package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/oggyb/matchfeed/internal/config"
	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		logger.Error("failed to init db", "err", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close(database) }()

	if err := db.SeedTestData(database); err != nil {
		logger.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	logger.Info("Seeding completed.", "password", db.SeedPassword)
}
