package main

import (
	"log"

	"github.com/shestoi/stockkeeper/internal/app"
	"github.com/shestoi/stockkeeper/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("App error: %v", err)
	}
}
