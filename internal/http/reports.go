package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func listDeliveriesHandler(chRepo repository.CHDeliveriesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := pagination(c)

		f := repository.DeliveryFilters{
			UserID: c.QueryParam("user_id"),
			Status: c.QueryParam("status"),
		}
		if raw := strings.TrimSpace(c.QueryParam("type")); raw != "" {
			tmp := model.NotificationType(raw)
			if tmp.Valid() {
				f.Type = tmp
			}
		}
		if v := c.QueryParam("date_from"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.DateFrom = &t
			}
		}
		if v := c.QueryParam("date_to"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.DateTo = &t
			}
		}

		rows, err := chRepo.List(c.Request().Context(), f, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

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
