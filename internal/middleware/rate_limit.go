package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// RateLimit throttles an action per actor and per target resource. Anonymous callers
// fall back to their IP address.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   window,
		KeyGenerator: rateLimitKey(identifier),
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, fmt.Sprintf("too many %s requests, retry in %s", identifier, window))
		},
	})
}

func rateLimitKey(identifier string) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		actor := c.IP()
		if id, ok := c.Locals("user_id").(uint); ok && id > 0 {
			actor = fmt.Sprintf("user:%d", id)
		}
		if target := c.Params("id"); target != "" {
			return fmt.Sprintf("%s:%s:%s", identifier, actor, target)
		}
		return fmt.Sprintf("%s:%s", identifier, actor)
	}
}
