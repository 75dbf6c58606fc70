package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// dispatchAuth gates the dispatch endpoint behind a bearer secret.
// With no secret configured the endpoint stays open; dispatch is
// idempotent inside a window, so an unauthenticated ping can at worst
// deliver a reminder slightly early.
func (s *Server) dispatchAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.dispatchSecret == "" {
			return next(c)
		}

		auth := c.Request().Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if auth == "" || token == auth {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authorization required"})
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.dispatchSecret)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		return next(c)
	}
}
