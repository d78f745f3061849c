package main

import (
	"flag"
	"log"
	"os"

	"github.com/kumbhanChoksi/Signals-Backend/internal/di"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s role=%s db=%s cache=%s", cfg.Environment, cfg.App.Role, cfg.Database.Driver, cfg.Cache.Backend)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
