package auth

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const ApiKeyHeaderName = "X-Api-Key"

// New guards the profiling endpoints and every write with a static api key.
// Read endpoints stay open; the registry is public data.
func New() fiber.Handler {
	apiKey := os.Getenv("ApiKey")

	return func(ctx *fiber.Ctx) error {
		apiKeyNeeded := false

		if strings.Contains(ctx.Path(), "pprof") || ctx.Method() == fiber.MethodPost {
			apiKeyNeeded = true
		}

		if apiKeyNeeded && ctx.GetReqHeaders()[ApiKeyHeaderName] != apiKey {
			return ctx.SendStatus(fiber.StatusUnauthorized)
		}

		return ctx.Next()
	}
}
