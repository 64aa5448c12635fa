package currency

import (
	"context"

	"github.com/google/uuid"
)

// Registry is a read-through cache in front of a Repository.
type Registry struct {
	repo  Repository
	cache Cache
}

func NewRegistry(repo Repository, cache Cache) *Registry {
	if cache == nil {
		cache = NewLocalCache()
	}
	return &Registry{repo: repo, cache: cache}
}

func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Currency, error) {
	if c, ok := r.cache.Get(ctx, id); ok {
		return c, nil
	}
	c, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, c)
	return c, nil
}

func (r *Registry) GetByCode(ctx context.Context, code string) (*Currency, error) {
	c, err := r.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, c)
	return c, nil
}

func (r *Registry) List(ctx context.Context) ([]*Currency, error) {
	return r.repo.List(ctx)
}

func (r *Registry) Create(ctx context.Context, c *Currency) error {
	if err := r.repo.Create(ctx, c); err != nil {
		return err
	}
	r.cache.Set(ctx, c)
	return nil
}
