package service

import (
	"context"

	"ai-chatstream-be/internal/dto"
	"ai-chatstream-be/internal/repository/contract"
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/store"
)

type IChatService interface {
	Modes(ctx context.Context) []*dto.ModelModeResponse
	Snapshots(ctx context.Context, userName string) ([]contract.SessionSnapshot, error)
	Record(ctx context.Context, req *dto.SessionRequest) ([]*dto.HistoryMessageResponse, error)
	Delete(ctx context.Context, req *dto.SessionRequest) error
}

// ModelCatalog lists the selectable chat backends.
type ModelCatalog interface {
	Models() []llm.ModelCatalog
}

type chatService struct {
	history contract.ChatHistoryRepository
	models  ModelCatalog
}

func NewChatService(history contract.ChatHistoryRepository, models ModelCatalog) IChatService {
	return &chatService{
		history: history,
		models:  models,
	}
}

func (s *chatService) Modes(ctx context.Context) []*dto.ModelModeResponse {
	catalog := s.models.Models()
	res := make([]*dto.ModelModeResponse, 0, len(catalog))
	for _, m := range catalog {
		res = append(res, &dto.ModelModeResponse{
			ModelType: string(m.Type),
			Desc:      m.Desc,
			Names:     m.Names,
		})
	}
	return res
}

func (s *chatService) Snapshots(ctx context.Context, userName string) ([]contract.SessionSnapshot, error) {
	snaps, err := s.history.Snapshots(ctx, userName)
	if err != nil {
		return nil, err
	}
	if snaps == nil {
		snaps = []contract.SessionSnapshot{}
	}
	return snaps, nil
}

// Record returns a session's turns in order; an unknown session is an
// empty list rather than an error.
func (s *chatService) Record(ctx context.Context, req *dto.SessionRequest) ([]*dto.HistoryMessageResponse, error) {
	turns, err := s.history.ReadOrdered(ctx, store.SessionKey{UserName: req.UserName, SessionID: req.SessionID})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.HistoryMessageResponse, 0, len(turns))
	for _, t := range turns {
		res = append(res, &dto.HistoryMessageResponse{
			Role:      string(t.Role),
			Content:   t.Content.Text,
			Images:    t.Content.Images,
			ModelName: t.ModelName,
		})
	}
	return res, nil
}

func (s *chatService) Delete(ctx context.Context, req *dto.SessionRequest) error {
	return s.history.Delete(ctx, store.SessionKey{UserName: req.UserName, SessionID: req.SessionID})
}
