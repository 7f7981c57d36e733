package dto

import (
	"time"

	"github.com/google/uuid"
)

type FileIdRequest struct {
	FileId string `json:"file_id" validate:"required"`
}

type FileIdChunkRequest struct {
	FileId string `json:"file_id" validate:"required"`
	Query  string `json:"query" validate:"required"`
}

type KnowledgeResponse struct {
	Id           uuid.UUID  `json:"id"`
	UserName     string     `json:"user_name"`
	FileId       string     `json:"file_id"`
	FilePath     string     `json:"file_path"`
	FileName     string     `json:"file_name"`
	FileSize     int64      `json:"file_size"`
	ChunkSize    int        `json:"chunk_size"`
	ChunkOverlap int        `json:"chunk_overlap"`
	FileTitle    string     `json:"file_title"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type KnowledgeChunkResponse struct {
	Id        uuid.UUID `json:"node_id"`
	FileId    string    `json:"file_id"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	FileType  string    `json:"file_type"`
	ImageType string    `json:"image_type,omitempty"`
	Position  int       `json:"position"`
	Text      string    `json:"text"`
}

// IngestKnowledgeRequest asks for a file's text to be chunked, embedded and
// indexed. Text is the already extracted document body.
type IngestKnowledgeRequest struct {
	UserName  string `json:"user_name" validate:"required"`
	FileId    string `json:"file_id"`
	FilePath  string `json:"file_path" validate:"required"`
	FileName  string `json:"file_name" validate:"required"`
	FileType  string `json:"file_type"`
	FileTitle string `json:"file_title"`
	Text      string `json:"text" validate:"required"`
}

// PublishIngestMessage is the queue payload behind IngestKnowledgeRequest.
type PublishIngestMessage struct {
	UserName  string `json:"user_name"`
	FileId    string `json:"file_id"`
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	FileType  string `json:"file_type"`
	FileTitle string `json:"file_title"`
	Text      string `json:"text"`
}

type IngestKnowledgeResponse struct {
	FileId string `json:"file_id"`
	Queued bool   `json:"queued"`
}
