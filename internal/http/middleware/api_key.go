package middleware

import (
	"net/http"
	"strings"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/repository"
	echo "github.com/labstack/echo/v4"
)

// ProfileFromCtx extracts the authenticated profile set by APIKeyMiddleware.
func ProfileFromCtx(c echo.Context) (*model.Profile, bool) {
	v := c.Get("profile")
	p, ok := v.(*model.Profile)
	return p, ok
}

// APIKeyMiddleware authenticates requests using X-API-Key header.
// On success it stores the profile in context; suspended accounts are blocked.
func APIKeyMiddleware(profiles repository.ProfilesRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			p, err := profiles.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if p == nil || p.Status != "active" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set("profile", p)
			if p.RateLimitRPS != nil {
				c.Set("profile_rps", *p.RateLimitRPS)
			}
			return next(c)
		}
	}
}

// AdminOnly rejects requests from non-staff accounts. It expects the
// profile in echo.Context (set by APIKeyMiddleware).
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := ProfileFromCtx(c)
			if !ok || p.Role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "admin only"})
			}
			return next(c)
		}
	}
}
