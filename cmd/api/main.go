package main

import (
	"log"

	"easyread/internal/bootstrap"
	"easyread/internal/shared/config"
	"easyread/internal/shared/server"
	"easyread/internal/shared/telemetry"
)

func main() {
	telemetry.Init()
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	addr := server.Addr(cfg.Port)
	telemetry.Info("server.start", map[string]any{
		"addr": addr,
		"env":  cfg.Env,
	})

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
