package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"healthtracker/internal/app"
)

// @title                       Health Tracker API
// @version                     1.0
// @description                 Accounts, sessions, profiles and health measurements.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
