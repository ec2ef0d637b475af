package cache

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/openfpp/registry-api-go/cache"
	log "github.com/openfpp/registry-api-go/pkg/logger"
	"go.uber.org/zap"
)

// New caches GET responses in redis keyed by a hash of the request URI.
// The dump endpoint streams and is never cached; operational endpoints are
// excluded too.
func New() fiber.Handler {
	cacheRepo := cache.NewRedisRepository()
	return func(c *fiber.Ctx) error {
		if c.Path() == "/healthcheck" ||
			c.Path() == "/metrics" ||
			c.Path() == "/monitor" ||
			c.Path() == "/dump" {
			return c.Next()
		}

		reqURI := c.OriginalURL()
		hashURL := uuid.NewSHA1(uuid.NameSpaceOID, []byte(reqURI)).String()
		if c.Method() != http.MethodGet {
			// A write may invalidate whatever was cached for this url.
			if err := cacheRepo.Delete(hashURL); err != nil {
				log.Logger().Warn("cache delete failed", zap.Error(err))
			}
			return c.Next()
		}
		cacheData := cacheRepo.Get(hashURL)
		if len(cacheData) == 0 {
			c.Next()
			if c.Response().StatusCode() == fiber.StatusOK && len(c.Response().Body()) > 0 {
				cacheRepo.SetKey(hashURL, c.Response().Body(), 5*time.Minute)
			}
			return nil
		}

		c.Set("x-cached-response", "true")
		c.Response().SetBodyRaw(cacheData)
		c.Response().Header.SetContentType(fiber.MIMEApplicationJSON)
		return nil
	}
}
