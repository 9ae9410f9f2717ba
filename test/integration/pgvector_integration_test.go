package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"rag-context-be/internal/model"
	"rag-context-be/pkg/configstore"
	"rag-context-be/pkg/database"
	"rag-context-be/pkg/vectorstore"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestPgVectorStore(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDB(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	t.Run("Check chunk_embeddings table", func(t *testing.T) {
		var count int64
		err := gormDB.Model(&model.ChunkEmbedding{}).Count(&count).Error
		assert.NoError(t, err)
		t.Logf("ChunkEmbedding count: %d", count)
	})

	t.Run("Match with zero vector", func(t *testing.T) {
		store := vectorstore.NewPgVectorStore(gormDB, nil)
		vec := make([]float32, 768)
		vec[0] = 1

		candidates, err := store.Match(context.Background(), vec, 5, 0.0, vectorstore.Filter{})
		assert.NoError(t, err)
		t.Logf("Matched %d candidates", len(candidates))
	})

	t.Run("Guardrail defaults load", func(t *testing.T) {
		store := configstore.NewGormStore(gormDB, nil, time.Minute, nil)
		cfg, fromCache := store.Defaults(context.Background())
		assert.False(t, fromCache)
		assert.GreaterOrEqual(t, cfg.TopK, 1)
		t.Logf("Resolved defaults: topK=%d threshold=%v", cfg.TopK, cfg.SimilarityThreshold)
	})
}
