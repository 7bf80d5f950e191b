package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTProtectedSetsActorLocals(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Use(RequireRole("instructor"))
	app.Get("/", func(c *fiber.Ctx) error {
		require.Equal(t, uint(42), c.Locals("user_id"))
		return c.SendString(c.Locals("user_role").(string))
	})

	token := signedToken(t, "secret", jwt.MapClaims{
		"sub":  "42",
		"role": "Instructor",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	expired := signedToken(t, "secret", jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Hour).Unix()})
	foreign := signedToken(t, "other", jwt.MapClaims{"sub": 1})

	for _, header := range []string{"", "Token abc", "Bearer " + expired, "Bearer " + foreign} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestJWTProtectedRequiresUserID(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for _, claims := range []jwt.MapClaims{
		{"role": "teacher", "exp": time.Now().Add(time.Hour).Unix()},
		{"sub": "0", "role": "teacher", "exp": time.Now().Add(time.Hour).Unix()},
		{"sub": "abc", "role": "teacher", "exp": time.Now().Add(time.Hour).Unix()},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", claims))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestJWTProtectedPicksAllowedRoleFromList(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Use(RequireRole("admin", "teacher", "instructor"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_role").(string))
	})

	token := signedToken(t, "secret", jwt.MapClaims{
		"sub":   7,
		"roles": []string{"student", "Teacher"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "teacher", string(body))
}
