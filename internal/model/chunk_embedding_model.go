package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChunkEmbedding struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocId      string          `gorm:"type:text;not null;index"`
	Title      string          `gorm:"type:text"`
	SourceUrl  string          `gorm:"type:text"`
	DocType    string          `gorm:"type:text;index"`
	ChunkIndex int             `gorm:"default:0"` // 0-based index for ordering
	ChunkText  string          `gorm:"type:text"`
	Embedding  pgvector.Vector `gorm:"type:vector(768)"` // text-embedding-004 / nomic-embed-text use 768 dimensions
	Metadata   datatypes.JSON  `gorm:"type:jsonb"`       // raw upstream metadata, alias-normalized at read time
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt  `gorm:"index"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}
