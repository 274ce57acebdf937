package handlers

import (
	"errors"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/state"

	"github.com/gofiber/fiber/v2"
)

// ItemRequest is the body for adding a product to the cart or wishlist.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartHandler handles the signed-in user's cart and wishlist.
type CartHandler struct {
	catalog  *services.CatalogService
	cart     *services.CartService
	wishlist *services.WishlistService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(catalog *services.CatalogService, cart *services.CartService, wishlist *services.WishlistService) *CartHandler {
	return &CartHandler{
		catalog:  catalog,
		cart:     cart,
		wishlist: wishlist,
	}
}

// RegisterRoutes registers the cart and wishlist routes behind auth.
func (h *CartHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	cartRoutes := router.Group("/cart", auth)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/", h.HandleAddToCart)
	cartRoutes.Delete("/:id", h.HandleRemoveFromCart)

	wishlistRoutes := router.Group("/wishlist", auth)
	wishlistRoutes.Get("/", h.HandleGetWishlist)
	wishlistRoutes.Post("/", h.HandleAddToWishlist)
	wishlistRoutes.Delete("/:id", h.HandleRemoveFromWishlist)
}

// product loads the product being added. A failed lookup has already been
// written to the response when ok is false.
func (h *CartHandler) product(c *fiber.Ctx, id string) (product models.Product, ok bool, err error) {
	st, err := await(c, h.catalog.ProductByID(id))
	if err != nil {
		return product, false, c.Status(fiber.StatusGatewayTimeout).JSON(state.Error[models.Product](err.Error()))
	}
	if st.IsError() {
		return product, false, writeState(c, st, fiber.StatusOK)
	}
	return st.Data, true, nil
}

func firstImage(p models.Product) string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return respond(c, h.cart.Cart(middleware.UserID(c)), fiber.StatusOK)
}

// HandleAddToCart adds a product to the cart. The quantity is validated
// before the product is looked up.
func (h *CartHandler) HandleAddToCart(c *fiber.Ctx) error {
	var req ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	line := models.CartLine{
		UserID:    middleware.UserID(c),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}
	if err := models.Validate(line); err != nil {
		return writeValidation(c, err)
	}

	product, ok, err := h.product(c, req.ProductID)
	if !ok {
		return err
	}
	line.ProductName = product.Name
	line.ProductImageURL = firstImage(product)
	line.Price = product.Price
	return respond(c, h.cart.AddToCart(line), fiber.StatusCreated)
}

// HandleRemoveFromCart removes one of the user's own cart lines.
func (h *CartHandler) HandleRemoveFromCart(c *fiber.Ctx) error {
	lineID := c.Params("id")
	line, err := h.cart.CartLine(c.UserContext(), lineID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return writeValidation(c, err)
	}
	if err != nil || line.UserID != middleware.UserID(c) {
		return c.Status(fiber.StatusNotFound).JSON(state.Error[string]("Cart item not found"))
	}
	return respond(c, h.cart.RemoveFromCart(lineID), fiber.StatusOK)
}

func (h *CartHandler) HandleGetWishlist(c *fiber.Ctx) error {
	return respond(c, h.wishlist.Wishlist(middleware.UserID(c)), fiber.StatusOK)
}

func (h *CartHandler) HandleAddToWishlist(c *fiber.Ctx) error {
	var req ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	entry := models.WishlistEntry{
		UserID:    middleware.UserID(c),
		ProductID: req.ProductID,
	}
	if err := models.Validate(entry); err != nil {
		return writeValidation(c, err)
	}

	product, ok, err := h.product(c, req.ProductID)
	if !ok {
		return err
	}
	entry.ProductName = product.Name
	entry.ProductImageURL = firstImage(product)
	entry.Price = product.Price
	return respond(c, h.wishlist.AddToWishlist(entry), fiber.StatusCreated)
}

func (h *CartHandler) HandleRemoveFromWishlist(c *fiber.Ctx) error {
	entryID := c.Params("id")
	entry, err := h.wishlist.Entry(c.UserContext(), entryID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return writeValidation(c, err)
	}
	if err != nil || entry.UserID != middleware.UserID(c) {
		return c.Status(fiber.StatusNotFound).JSON(state.Error[string]("Wishlist item not found"))
	}
	return respond(c, h.wishlist.RemoveFromWishlist(entryID), fiber.StatusOK)
}
