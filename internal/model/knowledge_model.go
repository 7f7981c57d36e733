package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type Knowledge struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserName     string    `gorm:"type:varchar(255);not null;index"`
	FileId       string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	FilePath     string    `gorm:"type:text;not null;uniqueIndex"`
	FileName     string    `gorm:"type:text;not null"`
	FileSize     int64
	ChunkSize    int
	ChunkOverlap int
	FileTitle    string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Knowledge) TableName() string {
	return "knowledge"
}

type KnowledgeChunk struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	KnowledgeId    uuid.UUID       `gorm:"type:uuid;index"`
	UserName       string          `gorm:"type:varchar(255);not null;index"`
	FileId         string          `gorm:"type:varchar(255);not null;index"`
	FilePath       string          `gorm:"type:text"`
	FileName       string          `gorm:"type:text"`
	FileType       string          `gorm:"type:varchar(100)"`
	ImageType      string          `gorm:"type:varchar(50)"`
	Position       int             `gorm:"default:0"`
	Text           string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}
