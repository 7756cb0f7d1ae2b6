package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CorsMiddleware configures CORS for the marketing-site endpoints. The
// signup form posts from the public site, so the default is permissive;
// CORS_ORIGIN narrows it per environment.
func CorsMiddleware(origin string) fiber.Handler {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = "*"
	}

	return cors.New(cors.Config{
		AllowOrigins:     origin,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowCredentials: false,
	})
}
