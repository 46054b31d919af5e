package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
