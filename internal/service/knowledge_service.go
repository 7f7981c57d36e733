package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-chatstream-be/internal/dto"
	"ai-chatstream-be/internal/entity"
	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/internal/repository/specification"
	"ai-chatstream-be/internal/repository/unitofwork"
	"ai-chatstream-be/pkg/events"
	"ai-chatstream-be/pkg/rag/pipeline"
	"ai-chatstream-be/pkg/rag/retrieval"
	"ai-chatstream-be/pkg/utils"

	"github.com/google/uuid"
)

type IKnowledgeService interface {
	QueryAll(ctx context.Context, userName string) ([]*dto.KnowledgeResponse, error)
	QueryChunksByFileId(ctx context.Context, fileId string) ([]*dto.KnowledgeChunkResponse, error)
	QueryMatchChunks(ctx context.Context, req *dto.FileIdChunkRequest) ([]pipeline.FrontendNode, error)
	Ingest(ctx context.Context, req *dto.IngestKnowledgeRequest) (*dto.IngestKnowledgeResponse, error)
	// HandleIngestEvent feeds ingest requests arriving on the event bus.
	HandleIngestEvent(ctx context.Context, event events.Event) error
}

type knowledgeService struct {
	uowFactory       unitofwork.RepositoryFactory
	retriever        retrieval.Retriever
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewKnowledgeService(
	uowFactory unitofwork.RepositoryFactory,
	retriever retrieval.Retriever,
	publisherService IPublisherService,
	log logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		uowFactory:       uowFactory,
		retriever:        retriever,
		publisherService: publisherService,
		logger:           log,
	}
}

func (s *knowledgeService) QueryAll(ctx context.Context, userName string) ([]*dto.KnowledgeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.KnowledgeRepository().FindAll(ctx, specification.ByUserName{UserName: userName})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.KnowledgeResponse, 0, len(rows))
	for _, k := range rows {
		res = append(res, toKnowledgeResponse(k))
	}
	return res, nil
}

func (s *knowledgeService) QueryChunksByFileId(ctx context.Context, fileId string) ([]*dto.KnowledgeChunkResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	chunks, err := uow.KnowledgeChunkRepository().FindAll(ctx, specification.ByFileID{FileID: fileId}, specification.ChunkOrder{})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.KnowledgeChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		res = append(res, &dto.KnowledgeChunkResponse{
			Id:        c.Id,
			FileId:    c.FileId,
			FileName:  c.FileName,
			FilePath:  c.FilePath,
			FileType:  c.FileType,
			ImageType: c.ImageType,
			Position:  c.Position,
			Text:      c.Text,
		})
	}
	return res, nil
}

// QueryMatchChunks runs a plain vector search restricted to one file, for the
// document viewer.
func (s *knowledgeService) QueryMatchChunks(ctx context.Context, req *dto.FileIdChunkRequest) ([]pipeline.FrontendNode, error) {
	cands, err := s.retriever.Retrieve(ctx, retrieval.Query{Text: req.Query, FileID: req.FileId})
	if err != nil {
		return nil, err
	}
	return pipeline.FrontendNodes(cands, utils.ImageBase64), nil
}

func (s *knowledgeService) Ingest(ctx context.Context, req *dto.IngestKnowledgeRequest) (*dto.IngestKnowledgeResponse, error) {
	fileId := req.FileId
	if fileId == "" {
		fileId = uuid.NewString()
	}

	payload, err := json.Marshal(dto.PublishIngestMessage{
		UserName:  req.UserName,
		FileId:    fileId,
		FilePath:  req.FilePath,
		FileName:  req.FileName,
		FileType:  req.FileType,
		FileTitle: req.FileTitle,
		Text:      req.Text,
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return nil, fmt.Errorf("queue ingestion: %w", err)
	}

	s.logger.Info("Knowledge", "Ingestion queued", map[string]interface{}{
		"file_id":   fileId,
		"file_path": req.FilePath,
	})
	return &dto.IngestKnowledgeResponse{FileId: fileId, Queued: true}, nil
}

func (s *knowledgeService) HandleIngestEvent(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return err
	}

	var req dto.IngestKnowledgeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode ingest event: %w", err)
	}
	if req.UserName == "" || req.FilePath == "" || req.Text == "" {
		s.logger.Warn("Knowledge", "Ignoring incomplete ingest event", map[string]interface{}{"file_path": req.FilePath})
		return nil
	}

	_, err = s.Ingest(ctx, &req)
	return err
}

func toKnowledgeResponse(k *entity.Knowledge) *dto.KnowledgeResponse {
	return &dto.KnowledgeResponse{
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
		UpdatedAt:    k.UpdatedAt,
	}
}
