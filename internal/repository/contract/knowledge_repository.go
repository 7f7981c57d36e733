package contract

import (
	"context"

	"ai-chatstream-be/internal/entity"
	"ai-chatstream-be/internal/repository/specification"
)

type KnowledgeRepository interface {
	Create(ctx context.Context, knowledge *entity.Knowledge) error
	Update(ctx context.Context, knowledge *entity.Knowledge) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Knowledge, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Knowledge, error)
}
