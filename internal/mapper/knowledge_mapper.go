package mapper

import (
	"ai-chatstream-be/internal/entity"
	"ai-chatstream-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type KnowledgeMapper struct{}

func NewKnowledgeMapper() *KnowledgeMapper {
	return &KnowledgeMapper{}
}

func (m *KnowledgeMapper) ToEntity(k *model.Knowledge) *entity.Knowledge {
	if k == nil {
		return nil
	}

	e := &entity.Knowledge{
		Id:           k.Id,
		UserName:     k.UserName,
		FileId:       k.FileId,
		FilePath:     k.FilePath,
		FileName:     k.FileName,
		FileSize:     k.FileSize,
		ChunkSize:    k.ChunkSize,
		ChunkOverlap: k.ChunkOverlap,
		FileTitle:    k.FileTitle,
		CreatedAt:    k.CreatedAt,
	}
	if !k.UpdatedAt.IsZero() {
		t := k.UpdatedAt
		e.UpdatedAt = &t
	}
	return e
}

func (m *KnowledgeMapper) ToModel(e *entity.Knowledge) *model.Knowledge {
	if e == nil {
		return nil
	}

	k := &model.Knowledge{
		Id:           e.Id,
		UserName:     e.UserName,
		FileId:       e.FileId,
		FilePath:     e.FilePath,
		FileName:     e.FileName,
		FileSize:     e.FileSize,
		ChunkSize:    e.ChunkSize,
		ChunkOverlap: e.ChunkOverlap,
		FileTitle:    e.FileTitle,
		CreatedAt:    e.CreatedAt,
	}
	if e.UpdatedAt != nil {
		k.UpdatedAt = *e.UpdatedAt
	}
	return k
}

type KnowledgeChunkMapper struct{}

func NewKnowledgeChunkMapper() *KnowledgeChunkMapper {
	return &KnowledgeChunkMapper{}
}

func (m *KnowledgeChunkMapper) ToEntity(c *model.KnowledgeChunk) *entity.KnowledgeChunk {
	if c == nil {
		return nil
	}
	return &entity.KnowledgeChunk{
		Id:             c.Id,
		KnowledgeId:    c.KnowledgeId,
		UserName:       c.UserName,
		FileId:         c.FileId,
		FilePath:       c.FilePath,
		FileName:       c.FileName,
		FileType:       c.FileType,
		ImageType:      c.ImageType,
		Position:       c.Position,
		Text:           c.Text,
		EmbeddingValue: c.EmbeddingValue.Slice(),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *KnowledgeChunkMapper) ToModel(e *entity.KnowledgeChunk) *model.KnowledgeChunk {
	if e == nil {
		return nil
	}
	return &model.KnowledgeChunk{
		Id:             e.Id,
		KnowledgeId:    e.KnowledgeId,
		UserName:       e.UserName,
		FileId:         e.FileId,
		FilePath:       e.FilePath,
		FileName:       e.FileName,
		FileType:       e.FileType,
		ImageType:      e.ImageType,
		Position:       e.Position,
		Text:           e.Text,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
	}
}
