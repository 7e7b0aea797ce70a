package response

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the uniform body shape for every response.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    any         `json:"details,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination carries page metadata for list responses.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Success sends a 200 with data.
func Success(c *fiber.Ctx, data any) error {
	return c.Status(http.StatusOK).JSON(Envelope{Success: true, Data: data})
}

// SuccessMessage sends a 200 with a message and optional data.
func SuccessMessage(c *fiber.Ctx, message string, data any) error {
	return c.Status(http.StatusOK).JSON(Envelope{Success: true, Message: message, Data: data})
}

// Created sends a 201 with data.
func Created(c *fiber.Ctx, message string, data any) error {
	return c.Status(http.StatusCreated).JSON(Envelope{Success: true, Message: message, Data: data})
}

// Paginated sends a 200 with items and page metadata.
func Paginated(c *fiber.Ctx, items any, meta Pagination) error {
	return c.Status(http.StatusOK).JSON(Envelope{Success: true, Data: items, Pagination: &meta})
}

// Error sends a failure envelope with the given status.
func Error(c *fiber.Ctx, status int, message string, details any) error {
	return c.Status(status).JSON(Envelope{Success: false, Message: message, Error: message, Details: details})
}
