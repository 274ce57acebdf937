package handlers

import (
	"errors"
	"path"

	"storefront/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// ObjectHandler serves uploaded objects.
type ObjectHandler struct {
	storage *repositories.AferoStorage
}

func NewObjectHandler(storage *repositories.AferoStorage) *ObjectHandler {
	return &ObjectHandler{storage: storage}
}

func (h *ObjectHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/objects/*", h.HandleGetObject)
}

func (h *ObjectHandler) HandleGetObject(c *fiber.Ctx) error {
	objectPath := c.Params("*")
	data, err := h.storage.Open(objectPath)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Object not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if ext := path.Ext(objectPath); ext != "" {
		c.Type(ext)
	}
	return c.Send(data)
}
