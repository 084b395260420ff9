package http

import (
	"net/http"
	"strings"

	"github.com/essoham7/chinelivre/internal/repository"
	echo "github.com/labstack/echo/v4"
)

// listUsersHandler is the staff user directory, the source of user ids
// for targeted broadcasts. Defaults to clients; pass role=admin to list
// staff accounts instead.
func listUsersHandler(profiles repository.ProfilesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := pagination(c)

		f := repository.ProfileFilters{
			Role:    strings.TrimSpace(c.QueryParam("role")),
			Country: strings.TrimSpace(c.QueryParam("country")),
			City:    strings.TrimSpace(c.QueryParam("city")),
			Search:  strings.TrimSpace(c.QueryParam("search")),
		}
		if f.Role == "" {
			f.Role = "client"
		}

		rows, err := profiles.List(c.Request().Context(), f, limit, offset)
		if err != nil {
			c.Logger().Errorf("list users failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
