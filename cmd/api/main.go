package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/Darcywood/civdocs-landing/internal/auth"
	"github.com/Darcywood/civdocs-landing/internal/billing"
	"github.com/Darcywood/civdocs-landing/internal/config"
	"github.com/Darcywood/civdocs-landing/internal/identity"
	"github.com/Darcywood/civdocs-landing/internal/mailer"
	"github.com/Darcywood/civdocs-landing/internal/router"
	"github.com/Darcywood/civdocs-landing/internal/signup"
	"github.com/Darcywood/civdocs-landing/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating pgx pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("error pinging database")
	}

	stripeAPI := &client.API{}
	stripeAPI.Init(cfg.StripeSecretKey, nil)

	recordStore := store.New(pool)
	identityClient := identity.New(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	mailClient := mailer.New(cfg.ResendAPIKey, cfg.FromEmail)

	saga := signup.NewSaga(identityClient, recordStore, mailClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal server error"

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
				message = fiberErr.Message
			}

			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	app.Use(router.CorsMiddleware(cfg.CORSOrigin))
	app.Use(requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	r := &router.Router{
		SignupHandler:   signup.NewHandler(saga),
		CheckoutHandler: billing.NewCheckoutHandler(stripeAPI),
		WebhookHandler: billing.NewWebhookHandler(
			cfg.StripeWebhookSecret,
			recordStore,
			billing.NewAPIBackend(stripeAPI),
			mailClient,
		),
		PasswordResetHandler: &auth.PasswordResetHandler{
			Identity: identityClient,
			Mailer:   mailClient,
			SiteURL:  cfg.SiteURL,
		},
		MeHandler:     &auth.MeHandler{Store: recordStore},
		AuthMW:        auth.Middleware([]byte(cfg.SupabaseJWTSecret)),
		SignupLimiter: router.RateLimitSignup(cfg.SignupRateMax, cfg.SignupRateWindow),
	}
	r.RegisterRoutes(app)

	log.Info().Str("port", cfg.Port).Msg("listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("request")
		return err
	}
}
