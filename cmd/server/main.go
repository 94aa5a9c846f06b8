package main

import (
	"flag"
	"log"
	"net/http"

	"guildboard/internal/config"
	"guildboard/internal/serverapp"
)

func main() {
	configPath := flag.String("config", "guildboard_config.yml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	handler, err := serverapp.NewHandler(serverapp.Options{
		Config: cfg,
		Logger: log.Default(),
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	log.Printf("guildboard listening on %s (storage=%s)", cfg.Server.Addr, cfg.Storage.Backend)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, handler))
}
