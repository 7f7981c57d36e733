package entity

import (
	"time"

	"github.com/google/uuid"
)

// Knowledge is the catalogue row of one ingested file.
type Knowledge struct {
	Id           uuid.UUID
	UserName     string
	FileId       string
	FilePath     string
	FileName     string
	FileSize     int64
	ChunkSize    int
	ChunkOverlap int
	FileTitle    string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

type KnowledgeChunk struct {
	Id             uuid.UUID
	KnowledgeId    uuid.UUID
	UserName       string
	FileId         string
	FilePath       string
	FileName       string
	FileType       string
	ImageType      string
	Position       int
	Text           string
	EmbeddingValue []float32
	CreatedAt      time.Time
}
