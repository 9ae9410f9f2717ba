package main

import (
	"log"

	"rag-context-be/internal/config"
	"rag-context-be/internal/model"
	"rag-context-be/pkg/database"
)

func main() {
	cfg := config.Load()

	db, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// pgvector must be installed before the embedding column migrates.
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Panicf("Unable to create vector extension: %v", err)
	}

	if err := db.AutoMigrate(
		&model.ChunkEmbedding{},
		&model.GuardrailSetting{},
		&model.SessionSetting{},
	); err != nil {
		log.Panicf("Migration failed: %v", err)
	}

	log.Println("✅ Migration complete")
}
