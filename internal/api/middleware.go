package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/ppewatch/internal/logger"
)

// AuthMiddleware requires "Authorization: Bearer <token>" matching the
// configured api token. Write endpoints are closed when no token is set.
func (c *Controller) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		expected := c.Settings.API.Token
		if expected == "" {
			return c.HandleError(ctx, nil, "write endpoints are disabled, no api token configured", http.StatusForbidden)
		}

		authHeader := ctx.Request().Header.Get(echo.HeaderAuthorization)
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" {
			return c.HandleError(ctx, nil, "Invalid Authorization header format. Use 'Bearer {token}'", http.StatusUnauthorized)
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return c.HandleError(ctx, nil, "invalid token", http.StatusUnauthorized)
		}
		return next(ctx)
	}
}

func (c *Controller) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		c.log.Debug("api request",
			logger.String("method", ctx.Request().Method),
			logger.String("path", ctx.Path()),
			logger.Int("status", ctx.Response().Status),
			logger.Duration("elapsed", time.Since(start)))
		return err
	}
}
