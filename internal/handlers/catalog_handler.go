package handlers

import (
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles HTTP requests for categories and products.
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers the catalog routes. Reads are public; writes
// go through auth.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/home", h.HandleGetHome)
	router.Get("/categories", h.HandleGetCategories)
	router.Get("/categories/home", h.HandleGetHomeCategories)
	router.Get("/products", h.HandleGetProducts)
	router.Get("/products/:id", h.HandleGetProductByID)

	router.Post("/categories", auth, h.HandleCreateCategory)
	router.Post("/products", auth, h.HandleCreateProduct)
}

// HandleGetHome returns the home categories together with all products.
func (h *CatalogHandler) HandleGetHome(c *fiber.Ctx) error {
	return respond(c, h.service.HomeData(), fiber.StatusOK)
}

func (h *CatalogHandler) HandleGetCategories(c *fiber.Ctx) error {
	return respond(c, h.service.AllCategories(), fiber.StatusOK)
}

func (h *CatalogHandler) HandleGetHomeCategories(c *fiber.Ctx) error {
	return respond(c, h.service.HomeCategories(), fiber.StatusOK)
}

// HandleGetProducts returns all products, or the current products of one
// category when ?category= is given.
func (h *CatalogHandler) HandleGetProducts(c *fiber.Ctx) error {
	if category := c.Query("category"); category != "" {
		return respond(c, h.service.ProductsByCategory(category), fiber.StatusOK)
	}
	return respond(c, h.service.AllProducts(), fiber.StatusOK)
}

func (h *CatalogHandler) HandleGetProductByID(c *fiber.Ctx) error {
	return respond(c, h.service.ProductByID(c.Params("id")), fiber.StatusOK)
}

func (h *CatalogHandler) HandleCreateCategory(c *fiber.Ctx) error {
	var category models.Category
	if err := c.BodyParser(&category); err != nil {
		return badBody(c, err)
	}
	id, err := h.service.CreateCategory(c.UserContext(), category)
	if err != nil {
		return writeValidation(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Category created successfully",
		"id":      id,
	})
}

func (h *CatalogHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badBody(c, err)
	}
	id, err := h.service.CreateProduct(c.UserContext(), product)
	if err != nil {
		return writeValidation(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product created successfully",
		"id":      id,
	})
}
