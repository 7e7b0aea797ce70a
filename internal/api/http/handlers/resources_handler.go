package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/catalog"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/service"
	"github.com/bem-health/admin-api/pkg/apperror"
	"github.com/bem-health/admin-api/pkg/response"
)

// ResourcesHandler serves CRUD for every catalog entity under
// /api/:resource. Gates are resolved per resource from the catalog.
type ResourcesHandler struct {
	resources *service.ResourceService
	catalog   *catalog.Catalog
	gate      *auth.RoleGate
}

// NewResourcesHandler constructs handler.
func NewResourcesHandler(resources *service.ResourceService, cat *catalog.Catalog, gate *auth.RoleGate) *ResourcesHandler {
	return &ResourcesHandler{resources: resources, catalog: cat, gate: gate}
}

// List handles GET /api/:resource.
func (h *ResourcesHandler) List(c *fiber.Ctx) error {
	def, err := h.authorize(c, false)
	if err != nil {
		return err
	}
	return h.list(c, def, nil)
}

// PublicList handles GET /api/public/:resource. Anonymous callers and
// callers outside the read gate only see the public subset.
func (h *ResourcesHandler) PublicList(c *fiber.Ctx) error {
	def, err := h.lookup(c)
	if err != nil {
		return err
	}
	id, ok := auth.IdentityFromContext(c)
	if ok && h.gate.Allows(id.Role, h.gate.Roles(def.ReadGate)) {
		return h.list(c, def, nil)
	}
	if len(def.Public) == 0 {
		return apperror.NotFound(def.Label)
	}
	return h.list(c, def, def.Public)
}

// Get handles GET /api/:resource/:id.
func (h *ResourcesHandler) Get(c *fiber.Ctx) error {
	def, err := h.authorize(c, false)
	if err != nil {
		return err
	}
	item, err := h.resources.Get(c.UserContext(), def, c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, item)
}

// Create handles POST /api/:resource.
func (h *ResourcesHandler) Create(c *fiber.Ctx) error {
	def, err := h.authorize(c, true)
	if err != nil {
		return err
	}
	input, err := bodyMap(c)
	if err != nil {
		return err
	}
	actor, _ := auth.IdentityFromContext(c)
	item, err := h.resources.Create(c.UserContext(), actor, def, input)
	if err != nil {
		return err
	}
	return response.Created(c, def.Label+" created", item)
}

// Update handles PUT /api/:resource/:id.
func (h *ResourcesHandler) Update(c *fiber.Ctx) error {
	def, err := h.authorize(c, true)
	if err != nil {
		return err
	}
	input, err := bodyMap(c)
	if err != nil {
		return err
	}
	actor, _ := auth.IdentityFromContext(c)
	item, err := h.resources.Update(c.UserContext(), actor, def, c.Params("id"), input)
	if err != nil {
		return err
	}
	return response.SuccessMessage(c, def.Label+" updated", item)
}

// Delete handles DELETE /api/:resource/:id.
func (h *ResourcesHandler) Delete(c *fiber.Ctx) error {
	def, err := h.authorize(c, true)
	if err != nil {
		return err
	}
	actor, _ := auth.IdentityFromContext(c)
	if err := h.resources.Delete(c.UserContext(), actor, def, c.Params("id")); err != nil {
		return err
	}
	return response.SuccessMessage(c, def.Label+" deleted", nil)
}

func (h *ResourcesHandler) list(c *fiber.Ctx, def *catalog.Definition, fixed []query.Filter) error {
	params := query.ParamsFromQuery(func(key string) string { return c.Query(key) }, def.List)
	page, err := h.resources.List(c.UserContext(), def, params, fixed)
	if err != nil {
		return err
	}
	return response.Paginated(c, page.Items, response.Pagination{
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	})
}

func (h *ResourcesHandler) lookup(c *fiber.Ctx) (*catalog.Definition, error) {
	name := c.Params("resource")
	def, ok := h.catalog.Lookup(name)
	if !ok {
		return nil, apperror.NotFound("resource " + name)
	}
	return def, nil
}

func (h *ResourcesHandler) authorize(c *fiber.Ctx, write bool) (*catalog.Definition, error) {
	def, err := h.lookup(c)
	if err != nil {
		return nil, err
	}
	gate := def.ReadGate
	if write {
		gate = def.WriteGate
	}
	id, ok := auth.IdentityFromContext(c)
	if err := h.gate.Check(id, ok, h.gate.Roles(gate)); err != nil {
		return nil, err
	}
	return def, nil
}

func bodyMap(c *fiber.Ctx) (map[string]any, error) {
	var input map[string]any
	if err := c.BodyParser(&input); err != nil || input == nil {
		return nil, apperror.Validation("invalid payload", nil)
	}
	return input, nil
}
