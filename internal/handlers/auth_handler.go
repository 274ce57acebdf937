package handlers

import (
	"io"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// maxImageSize caps profile image uploads.
const maxImageSize = 5 << 20

// AuthHandler handles registration, sign-in and the user's profile.
type AuthHandler struct {
	profile *services.ProfileService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(profile *services.ProfileService) *AuthHandler {
	return &AuthHandler{profile: profile}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
// Profile routes go through auth.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)

	profileRoutes := router.Group("/profile", auth)
	profileRoutes.Get("/", h.HandleGetProfile)
	profileRoutes.Put("/", h.HandleUpdateProfile)
	profileRoutes.Post("/image", h.HandleUploadImage)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var form models.SignUp
	if err := c.BodyParser(&form); err != nil {
		return badBody(c, err)
	}
	return respond(c, h.profile.Register(form), fiber.StatusCreated)
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var creds models.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return badBody(c, err)
	}

	st, err := await(c, h.profile.Authenticate(creds))
	if err != nil {
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"message": err.Error()})
	}
	if st.IsError() {
		zap.S().Debugf("Error during login for %s: %s", creds.Email, st.Message)
		return writeState(c, st, fiber.StatusOK)
	}
	return c.JSON(fiber.Map{
		"status":    "success",
		"message":   services.MsgSignedIn,
		"token":     st.Data.Token,
		"userId":    st.Data.UserID,
		"expiresAt": st.Data.ExpiresAt,
	})
}

func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	return respond(c, h.profile.UserDetails(middleware.UserID(c)), fiber.StatusOK)
}

// HandleUpdateProfile replaces the whole profile document.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var profile models.UserProfile
	if err := c.BodyParser(&profile); err != nil {
		return badBody(c, err)
	}
	return respond(c, h.profile.UpdateProfile(middleware.UserID(c), profile), fiber.StatusOK)
}

// HandleUploadImage stores the multipart "image" file as the profile image.
func (h *AuthHandler) HandleUploadImage(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return badBody(c, err)
	}
	if header.Size > maxImageSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"message": "Image is too large",
		})
	}
	file, err := header.Open()
	if err != nil {
		return badBody(c, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return badBody(c, err)
	}
	return respond(c, h.profile.UploadProfileImage(middleware.UserID(c), header.Filename, data), fiber.StatusCreated)
}
