package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/bem-health/admin-api/internal/catalog"
	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/internal/events"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/repository"
	"github.com/bem-health/admin-api/pkg/apperror"
)

// ResourcePage is one page of mapped resource rows.
type ResourcePage struct {
	Items      []map[string]any
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ResourceService serves CRUD for catalog entities.
type ResourceService struct {
	repo   repository.ResourceRepository
	events events.Dispatcher
	logger *zap.Logger
}

// NewResourceService builds the service.
func NewResourceService(repo repository.ResourceRepository, dispatcher events.Dispatcher, logger *zap.Logger) *ResourceService {
	if dispatcher == nil {
		dispatcher = events.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceService{repo: repo, events: dispatcher, logger: logger}
}

// List returns a page of def's rows, additionally restricted by fixed.
func (s *ResourceService) List(ctx context.Context, def *catalog.Definition, params query.Params, fixed []query.Filter) (*ResourcePage, error) {
	page, err := s.repo.List(ctx, def, params, fixed)
	if err != nil {
		return nil, storeError(err, def.Label)
	}
	return &ResourcePage{
		Items:      def.ToResponses(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}, nil
}

// Get returns one mapped row.
func (s *ResourceService) Get(ctx context.Context, def *catalog.Definition, id string) (map[string]any, error) {
	row, err := s.repo.Get(ctx, def, id)
	if err != nil {
		return nil, storeError(err, def.Label)
	}
	return def.ToResponse(row), nil
}

// Create validates and stores a new row.
func (s *ResourceService) Create(ctx context.Context, actor domain.Identity, def *catalog.Definition, input map[string]any) (map[string]any, error) {
	values, err := def.BuildPatch(input, true)
	if err != nil {
		return nil, fieldError(err)
	}
	if len(values) == 0 {
		return nil, apperror.Validation("no writable fields supplied", nil)
	}
	row, err := s.repo.Create(ctx, def, values)
	if err != nil {
		return nil, storeError(err, def.Label)
	}
	out := def.ToResponse(row)
	s.publish(ctx, events.New(events.EventResourceCreated, &actor, idOf(out), events.ResourcePayload{Resource: def.Name, Fields: columns(values)}))
	return out, nil
}

// Update merges input into an existing row.
func (s *ResourceService) Update(ctx context.Context, actor domain.Identity, def *catalog.Definition, id string, input map[string]any) (map[string]any, error) {
	values, err := def.BuildPatch(input, false)
	if err != nil {
		return nil, fieldError(err)
	}
	if len(values) == 0 {
		return nil, apperror.Validation("no updatable fields supplied", nil)
	}
	changed := columns(values)
	row, err := s.repo.Update(ctx, def, id, values)
	if err != nil {
		return nil, storeError(err, def.Label)
	}
	s.publish(ctx, events.New(events.EventResourceUpdated, &actor, id, events.ResourcePayload{Resource: def.Name, Fields: changed}))
	return def.ToResponse(row), nil
}

// Delete removes a row.
func (s *ResourceService) Delete(ctx context.Context, actor domain.Identity, def *catalog.Definition, id string) error {
	if err := s.repo.Delete(ctx, def, id); err != nil {
		return storeError(err, def.Label)
	}
	s.publish(ctx, events.New(events.EventResourceDeleted, &actor, id, events.ResourcePayload{Resource: def.Name}))
	return nil
}

func (s *ResourceService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func columns(r query.Row) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func idOf(r map[string]any) string {
	id, _ := r["id"].(string)
	return id
}
