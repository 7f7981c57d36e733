// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-chatstream-be/internal/dto"
	"ai-chatstream-be/internal/entity"
	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/internal/repository/specification"
	"ai-chatstream-be/internal/repository/unitofwork"
	"ai-chatstream-be/pkg/embedding"
	"ai-chatstream-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const consumerModule = "Consumer"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	chunkSize         int
	chunkOverlap      int
	logger            logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	chunkSize, chunkOverlap int,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		chunkSize:         chunkSize,
		chunkOverlap:      chunkOverlap,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		// Redelivering a malformed payload cannot succeed.
		msg.Ack()
		return
	}

	if err := cs.ingest(ctx, &payload); err != nil {
		cs.logger.Error(consumerModule, "Ingestion failed", map[string]interface{}{
			"file_path": payload.FilePath,
			"error":     err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

// ingest embeds the file's chunks, then swaps them in and upserts the
// catalogue row in one transaction.
func (cs *consumerService) ingest(ctx context.Context, payload *dto.PublishIngestMessage) error {
	cs.logger.Info(consumerModule, "Processing file", map[string]interface{}{
		"file_path": payload.FilePath,
		"user_name": payload.UserName,
	})

	chunks := utils.SplitText(payload.Text, cs.chunkSize, cs.chunkOverlap)
	now := time.Now()
	knowledgeId := uuid.New()

	newChunks := make([]*entity.KnowledgeChunk, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(ctx, chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		newChunks = append(newChunks, &entity.KnowledgeChunk{
			Id:             uuid.New(),
			UserName:       payload.UserName,
			FileId:         payload.FileId,
			FilePath:       payload.FilePath,
			FileName:       payload.FileName,
			FileType:       payload.FileType,
			Position:       i,
			Text:           chunk,
			EmbeddingValue: res.Embedding.Values,
			CreatedAt:      now,
		})
	}

	err := unitofwork.WithinTransaction(ctx, cs.uowFactory.NewUnitOfWork(ctx), func(uow unitofwork.UnitOfWork) error {
		existing, err := uow.KnowledgeRepository().FindOne(ctx, specification.ByFilePath{FilePath: payload.FilePath})
		if err != nil {
			return fmt.Errorf("find knowledge: %w", err)
		}

		if existing != nil {
			knowledgeId = existing.Id
			if existing.FileId != payload.FileId {
				// Chunks indexed under the previous id would become unreachable.
				if err := uow.KnowledgeChunkRepository().DeleteByFileId(ctx, existing.FileId); err != nil {
					return fmt.Errorf("delete stale chunks: %w", err)
				}
			}
			existing.UserName = payload.UserName
			existing.FileId = payload.FileId
			existing.FileName = payload.FileName
			existing.FileSize = int64(len(payload.Text))
			existing.ChunkSize = cs.chunkSize
			existing.ChunkOverlap = cs.chunkOverlap
			existing.FileTitle = payload.FileTitle
			existing.UpdatedAt = &now
			if err := uow.KnowledgeRepository().Update(ctx, existing); err != nil {
				return fmt.Errorf("update knowledge: %w", err)
			}
		} else {
			if err := uow.KnowledgeRepository().Create(ctx, &entity.Knowledge{
				Id:           knowledgeId,
				UserName:     payload.UserName,
				FileId:       payload.FileId,
				FilePath:     payload.FilePath,
				FileName:     payload.FileName,
				FileSize:     int64(len(payload.Text)),
				ChunkSize:    cs.chunkSize,
				ChunkOverlap: cs.chunkOverlap,
				FileTitle:    payload.FileTitle,
				CreatedAt:    now,
			}); err != nil {
				return fmt.Errorf("create knowledge: %w", err)
			}
		}

		if err := uow.KnowledgeChunkRepository().DeleteByFileId(ctx, payload.FileId); err != nil {
			return fmt.Errorf("delete old chunks: %w", err)
		}
		for _, c := range newChunks {
			c.KnowledgeId = knowledgeId
		}
		if len(newChunks) == 0 {
			return nil
		}
		if err := uow.KnowledgeChunkRepository().CreateBulk(ctx, newChunks); err != nil {
			return fmt.Errorf("create chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cs.logger.Info(consumerModule, "File indexed", map[string]interface{}{
		"file_path": payload.FilePath,
		"file_id":   payload.FileId,
		"chunks":    len(newChunks),
	})
	return nil
}
