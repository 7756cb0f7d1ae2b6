package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Darcywood/civdocs-landing/internal/auth"
	"github.com/Darcywood/civdocs-landing/internal/billing"
	"github.com/Darcywood/civdocs-landing/internal/signup"
)

type Router struct {
	SignupHandler        *signup.Handler
	CheckoutHandler      *billing.CheckoutHandler
	WebhookHandler       *billing.WebhookHandler
	PasswordResetHandler *auth.PasswordResetHandler
	MeHandler            *auth.MeHandler
	AuthMW               fiber.Handler
	SignupLimiter        fiber.Handler
}

func (r *Router) RegisterRoutes(app *fiber.App) {
	if r.SignupHandler != nil {
		if r.SignupLimiter != nil {
			app.Post("/start-trial", r.SignupLimiter, r.SignupHandler.StartTrial)
		} else {
			app.Post("/start-trial", r.SignupHandler.StartTrial)
		}
	}

	if r.CheckoutHandler != nil {
		app.Post("/checkout", r.CheckoutHandler.Create)
	}

	if r.WebhookHandler != nil {
		app.Post("/webhooks/billing", r.WebhookHandler.Handle)
	}

	if r.PasswordResetHandler != nil {
		if r.SignupLimiter != nil {
			app.Post("/send-password-reset", r.SignupLimiter, r.PasswordResetHandler.Send)
		} else {
			app.Post("/send-password-reset", r.PasswordResetHandler.Send)
		}
	}

	if r.MeHandler != nil && r.AuthMW != nil {
		app.Get("/api/me", r.AuthMW, r.MeHandler.Me)
	}
}
