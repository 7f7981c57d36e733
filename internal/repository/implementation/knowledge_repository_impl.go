package implementation

import (
	"context"
	"errors"

	"ai-chatstream-be/internal/entity"
	"ai-chatstream-be/internal/mapper"
	"ai-chatstream-be/internal/model"
	"ai-chatstream-be/internal/repository/contract"
	"ai-chatstream-be/internal/repository/specification"

	"gorm.io/gorm"
)

type KnowledgeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeMapper
}

func NewKnowledgeRepository(db *gorm.DB) contract.KnowledgeRepository {
	return &KnowledgeRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeMapper(),
	}
}

func (r *KnowledgeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *KnowledgeRepositoryImpl) Create(ctx context.Context, knowledge *entity.Knowledge) error {
	m := r.mapper.ToModel(knowledge)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*knowledge = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeRepositoryImpl) Update(ctx context.Context, knowledge *entity.Knowledge) error {
	m := r.mapper.ToModel(knowledge)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*knowledge = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Knowledge, error) {
	var m model.Knowledge
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *KnowledgeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Knowledge, error) {
	var models []*model.Knowledge
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Knowledge, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
