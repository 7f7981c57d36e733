package unitofwork

import "context"

// RepositoryFactory opens units of work for services.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
