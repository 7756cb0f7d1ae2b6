package signup

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Darcywood/civdocs-landing/internal/identity"
)

// Handler serves POST /start-trial.
type Handler struct {
	Saga *Saga
}

func NewHandler(saga *Saga) *Handler {
	return &Handler{Saga: saga}
}

func (h *Handler) StartTrial(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.Saga.StartTrial(c.UserContext(), req); err != nil {
		var verr ValidationError
		switch {
		case errors.As(err, &verr):
			return failure(c, fiber.StatusBadRequest, verr.Reason)
		case errors.Is(err, identity.ErrEmailExists):
			return failure(c, fiber.StatusConflict,
				"An account with this email address already exists. Please use a different email or try logging in.")
		default:
			return failure(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":      true,
		"message": "Trial created",
	})
}

func failure(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
