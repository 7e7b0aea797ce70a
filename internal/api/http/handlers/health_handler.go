package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend is an optional dependency. It takes part in readiness only when
// Enabled reports true.
type Backend interface {
	Pinger
	Enabled() bool
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	serviceName string
	version     string
	datastore   Pinger
	backends    map[string]Backend
}

// NewHealthHandler returns a handler. The datastore is always checked;
// backends are checked by name when enabled.
func NewHealthHandler(serviceName, version string, datastore Pinger, backends map[string]Backend) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, datastore: datastore, backends: backends}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings the datastore and every enabled backend.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	status := fiber.Map{}
	ready := check(ctx, "datastore", h.datastore, status)

	names := make([]string, 0, len(h.backends))
	for name := range h.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := h.backends[name]
		if b == nil || !b.Enabled() {
			status[name] = "disabled"
			continue
		}
		if !check(ctx, name, b, status) {
			ready = false
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"message": "one or more dependencies unavailable",
			"error":   "one or more dependencies unavailable",
			"details": status,
		})
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"status":       "ready",
		"dependencies": status,
	})
}

func check(ctx context.Context, name string, p Pinger, status fiber.Map) bool {
	if err := p.Ping(ctx); err != nil {
		status[name] = err.Error()
		return false
	}
	status[name] = "ok"
	return true
}
