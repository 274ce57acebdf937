package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/state"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// requestTimeout bounds how long a handler waits for a terminal state.
const requestTimeout = 30 * time.Second

// statusFor maps an Error state description onto an HTTP status.
func statusFor(message string) int {
	switch {
	case message == "Product not found":
		return fiber.StatusNotFound
	case strings.HasPrefix(message, "validation failed"):
		return fiber.StatusBadRequest
	case strings.Contains(message, "invalid credentials"):
		return fiber.StatusUnauthorized
	case strings.Contains(message, "already registered"):
		return fiber.StatusConflict
	case strings.Contains(message, "not found"):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// await runs stream until its first terminal state. Live streams are
// unsubscribed once the state is read.
func await[T any](c *fiber.Ctx, stream state.Stream[T]) (state.State[T], error) {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	return state.Await(ctx, stream.Observe(ctx))
}

// respond writes the first terminal state of stream as JSON. Success uses
// okStatus; Error is mapped by statusFor.
func respond[T any](c *fiber.Ctx, stream state.Stream[T], okStatus int) error {
	st, err := await(c, stream)
	if err != nil {
		zap.S().Errorf("Error waiting for %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusGatewayTimeout).JSON(state.Error[T](err.Error()))
	}
	return writeState(c, st, okStatus)
}

func writeState[T any](c *fiber.Ctx, st state.State[T], okStatus int) error {
	if st.IsError() {
		status := statusFor(st.Message)
		if status == fiber.StatusInternalServerError {
			zap.S().Errorf("Error serving %s %s: %s", c.Method(), c.Path(), st.Message)
		}
		return c.Status(status).JSON(st)
	}
	return c.Status(okStatus).JSON(st)
}

func badBody(c *fiber.Ctx, err error) error {
	zap.S().Debugf("Error parsing request body: %v", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// writeValidation reports a ValidationError field by field. Other errors
// fall through to a 500.
func writeValidation(c *fiber.Ctx, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	}
	zap.S().Errorf("Error serving %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Could not complete request",
		"error":   err.Error(),
	})
}
