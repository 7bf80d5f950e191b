package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

const tokenLeeway = 30 * time.Second

var (
	userIDClaims = []string{"sub", "user_id", "id"}
	roleClaims   = []string{"role", "roles"}
)

// JWTProtected validates HMAC signed bearer tokens and stores the grading actor
// (user_id, user_roles and user_role locals) for downstream handlers. Tokens must carry
// an expiry and a user id.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tokenLeeway),
	)
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "missing or malformed bearer token")
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		id, ok := actorID(claims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "token does not identify a user")
		}
		c.Locals("user_id", id)

		if roles := actorRoles(claims); len(roles) > 0 {
			c.Locals("user_roles", roles)
			c.Locals("user_role", roles[0])
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func actorID(claims jwt.MapClaims) (uint, bool) {
	for _, key := range userIDClaims {
		switch v := claims[key].(type) {
		case float64:
			if v > 0 && v == float64(uint(v)) {
				return uint(v), true
			}
		case string:
			if parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil && parsed > 0 {
				return uint(parsed), true
			}
		}
	}
	return 0, false
}

// actorRoles collects every role carried by the token in claim order, without duplicates.
func actorRoles(claims jwt.MapClaims) []string {
	var roles []string
	seen := map[string]struct{}{}
	add := func(raw string) {
		role := normalizeRole(raw)
		if role == "" {
			return
		}
		if _, ok := seen[role]; ok {
			return
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}

	for _, key := range roleClaims {
		switch v := claims[key].(type) {
		case string:
			add(v)
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		}
	}
	return roles
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
