package unitofwork

import (
	"context"
	"fmt"

	"ai-chatstream-be/internal/repository/contract"
)

// UnitOfWork hands out repositories bound to one connection. Between Begin
// and Commit/Rollback they all share the transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	KnowledgeRepository() contract.KnowledgeRepository
	KnowledgeChunkRepository() contract.KnowledgeChunkRepository
}

// WithinTransaction runs fn inside a transaction on uow, committing when fn
// succeeds and rolling back otherwise.
func WithinTransaction(ctx context.Context, uow UnitOfWork, fn func(uow UnitOfWork) error) error {
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
