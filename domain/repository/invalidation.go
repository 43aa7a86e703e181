package repository

import "context"

// IInvalidationBus broadcasts cache-invalidation patterns to other instances
// so their read caches drop stale scheduler queries.
type IInvalidationBus interface {
	PublishInvalidation(ctx context.Context, pattern string) (string, error)
}
