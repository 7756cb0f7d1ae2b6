package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/Darcywood/civdocs-landing/internal/mailer"
	"github.com/Darcywood/civdocs-landing/internal/store"
)

// RecoveryLinker issues password-reset tokens from the auth service.
type RecoveryLinker interface {
	GenerateRecoveryToken(ctx context.Context, email, redirectTo string) (string, error)
}

// ResetMailer sends the branded reset email.
type ResetMailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// PasswordResetHandler serves POST /send-password-reset.
type PasswordResetHandler struct {
	Identity RecoveryLinker
	Mailer   ResetMailer
	SiteURL  string
}

type passwordResetRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *PasswordResetHandler) Send(c *fiber.Ctx) error {
	var body passwordResetRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
	}

	ctx := c.UserContext()
	redirectTo := h.SiteURL + "/reset-password"

	token, err := h.Identity.GenerateRecoveryToken(ctx, body.Email, redirectTo)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	resetURL := fmt.Sprintf("%s/reset-password?access_token=%s&type=recovery",
		h.SiteURL, url.QueryEscape(token))

	name := body.Name
	if name == "" {
		name = "User"
	}
	html, err := mailer.RenderPasswordReset(name, resetURL)
	if err != nil {
		log.Error().Err(err).Msg("password reset: email render failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send email"})
	}

	if err := h.Mailer.Send(ctx, mailer.Message{
		To:      body.Email,
		Subject: "Reset your CivDocs password",
		HTML:    html,
	}); err != nil {
		log.Error().Err(err).Str("email", body.Email).Msg("password reset: email send failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send email"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// ProfileStore reads the caller's profile for GET /api/me.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (store.Profile, error)
}

// MeHandler returns the authenticated user's profile.
type MeHandler struct {
	Store ProfileStore
}

func (h *MeHandler) Me(c *fiber.Ctx) error {
	userID := UserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	profile, err := h.Store.GetProfile(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "profile not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load profile")
	}

	return c.JSON(fiber.Map{
		"id":                     profile.ID,
		"email":                  profile.Email,
		"full_name":              profile.FullName,
		"active_organization_id": profile.ActiveOrganizationID,
		"role":                   profile.Role,
	})
}
