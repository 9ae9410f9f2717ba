package main

import (
	"context"
	"log"

	"rag-context-be/internal/bootstrap"
	"rag-context-be/internal/config"
	"rag-context-be/internal/server"
	"rag-context-be/internal/tracer"
	"rag-context-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer func() {
		if container.NatsPublisher != nil {
			container.NatsPublisher.Close()
		}
		container.Logger.Sync()
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)
	if err := srv.Run(); err != nil {
		log.Panicf("Server stopped: %v", err)
	}
}
