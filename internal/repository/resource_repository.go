package repository

import (
	"context"
	"time"

	"github.com/bem-health/admin-api/internal/catalog"
	"github.com/bem-health/admin-api/internal/query"
)

// ResourceRepository performs CRUD for any catalog definition.
type ResourceRepository interface {
	List(ctx context.Context, def *catalog.Definition, params query.Params, fixed []query.Filter) (*query.Page, error)
	Get(ctx context.Context, def *catalog.Definition, id string) (query.Row, error)
	Create(ctx context.Context, def *catalog.Definition, values query.Row) (query.Row, error)
	Update(ctx context.Context, def *catalog.Definition, id string, values query.Row) (query.Row, error)
	Delete(ctx context.Context, def *catalog.Definition, id string) error
}

type resourceRepository struct {
	db query.Datastore
}

// NewResourceRepository returns a Datastore-backed implementation.
func NewResourceRepository(db query.Datastore) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) List(ctx context.Context, def *catalog.Definition, params query.Params, fixed []query.Filter) (*query.Page, error) {
	spec := def.List
	if len(fixed) > 0 {
		spec.Fixed = append(append([]query.Filter(nil), spec.Fixed...), fixed...)
	}
	return query.Paginate(ctx, r.db.From(def.Table), params, spec)
}

func (r *resourceRepository) Get(ctx context.Context, def *catalog.Definition, id string) (query.Row, error) {
	return r.db.From(def.Table).Eq("id", id).Single(ctx)
}

func (r *resourceRepository) Create(ctx context.Context, def *catalog.Definition, values query.Row) (query.Row, error) {
	return r.db.Insert(ctx, def.Table, values)
}

func (r *resourceRepository) Update(ctx context.Context, def *catalog.Definition, id string, values query.Row) (query.Row, error) {
	values["updated_at"] = time.Now().UTC()
	return r.db.Update(ctx, def.Table, query.Filter{Column: "id", Value: id}, values)
}

func (r *resourceRepository) Delete(ctx context.Context, def *catalog.Definition, id string) error {
	return r.db.Delete(ctx, def.Table, query.Filter{Column: "id", Value: id})
}
