// FILE: pkg/vectorstore/pgvector.go
// PURPOSE: pgvector-backed VectorStore over GORM

package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"rag-context-be/internal/model"
	"rag-context-be/internal/pkg/logger"
	"rag-context-be/pkg/guardrail"
)

type PgVectorStore struct {
	db     *gorm.DB
	logger logger.ILogger
}

var _ VectorStore = &PgVectorStore{}

func NewPgVectorStore(db *gorm.DB, log logger.ILogger) *PgVectorStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &PgVectorStore{db: db, logger: log}
}

// Match runs a cosine-similarity search against chunk_embeddings.
// Cosine distance in pgvector is 1 - cosine_similarity, so we compute
// 1 - (embedding <=> query_vector) as the similarity score.
func (s *PgVectorStore) Match(ctx context.Context, embedding []float32, matchCount int, similarityFloor float64, filter Filter) ([]guardrail.RetrievalCandidate, error) {
	if matchCount <= 0 {
		matchCount = 10
	}

	type row struct {
		model.ChunkEmbedding
		Similarity float64
	}
	var rows []row

	queryVector := pgvector.NewVector(embedding)

	q := s.db.WithContext(ctx).
		Table("chunk_embeddings").
		Select("chunk_embeddings.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("chunk_embeddings.deleted_at IS NULL").
		Where("1 - (embedding <=> ?) >= ?", queryVector, similarityFloor)

	if filter.DocType != "" {
		q = q.Where("doc_type = ?", filter.DocType)
	}
	if filter.PersonaType != "" {
		q = q.Where("metadata->>'persona_type' = ?", filter.PersonaType)
	}

	err := q.Order("similarity DESC").
		Limit(matchCount).
		Scan(&rows).Error
	if err != nil {
		s.logger.Error("vectorstore", "vector search failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	candidates := make([]guardrail.RetrievalCandidate, 0, len(rows))
	for i, r := range rows {
		candidates = append(candidates, guardrail.NormalizeCandidate(s.rawRecord(r.ChunkEmbedding, r.Similarity), i))
	}

	s.logger.Debug("vectorstore", "vector search complete", map[string]interface{}{
		"matches": len(candidates),
		"floor":   similarityFloor,
	})

	return candidates, nil
}

// rawRecord flattens a row into the loosely-typed record shape the
// candidate normalizer ingests, merging the JSONB metadata so upstream
// aliases (doc_id vs documentId etc.) resolve in one place.
func (s *PgVectorStore) rawRecord(m model.ChunkEmbedding, similarity float64) map[string]interface{} {
	meta := map[string]interface{}{}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &meta); err != nil {
			s.logger.Warn("vectorstore", "unreadable chunk metadata, using column values only", map[string]interface{}{
				"chunk_id": m.Id.String(),
			})
			meta = map[string]interface{}{}
		}
	}
	if m.DocId != "" {
		meta["doc_id"] = m.DocId
	}
	if m.Title != "" {
		meta["title"] = m.Title
	}
	if m.SourceUrl != "" {
		meta["source_url"] = m.SourceUrl
	}
	if m.DocType != "" {
		meta["doc_type"] = m.DocType
	}

	return map[string]interface{}{
		"chunk_text": m.ChunkText,
		"score":      similarity,
		"metadata":   meta,
	}
}
