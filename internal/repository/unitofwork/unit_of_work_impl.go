package unitofwork

import (
	"context"
	"errors"

	"ai-chatstream-be/internal/repository/contract"
	"ai-chatstream-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	ErrTxActive   = errors.New("transaction already started")
	ErrTxInactive = errors.New("no active transaction")
)

type gormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *gormUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *gormUnitOfWork) Commit() error {
	return u.end(func(tx *gorm.DB) error { return tx.Commit().Error })
}

func (u *gormUnitOfWork) Rollback() error {
	return u.end(func(tx *gorm.DB) error { return tx.Rollback().Error })
}

func (u *gormUnitOfWork) end(finish func(tx *gorm.DB) error) error {
	if u.tx == nil {
		return ErrTxInactive
	}
	tx := u.tx
	u.tx = nil
	return finish(tx)
}

func (u *gormUnitOfWork) KnowledgeRepository() contract.KnowledgeRepository {
	return implementation.NewKnowledgeRepository(u.conn())
}

func (u *gormUnitOfWork) KnowledgeChunkRepository() contract.KnowledgeChunkRepository {
	return implementation.NewKnowledgeChunkRepository(u.conn())
}
