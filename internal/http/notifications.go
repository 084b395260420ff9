package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/essoham7/chinelivre/internal/http/middleware"
	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/service/broadcast"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// ---- client side: the bell ----

func listMyNotificationsHandler(deliveries repository.UserNotificationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, _ := middleware.ProfileFromCtx(c)
		limit, offset := pagination(c)
		unreadOnly := c.QueryParam("unread") == "true"

		items, err := deliveries.ListForUser(c.Request().Context(), p.ID, unreadOnly, limit, offset)
		if err != nil {
			c.Logger().Errorf("list notifications failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		unread, err := deliveries.CountUnread(c.Request().Context(), p.ID)
		if err != nil {
			c.Logger().Errorf("count unread failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"unread":  unread,
			"count":   len(items),
			"results": items,
		})
	}
}

func markNotificationsReadHandler(deliveries repository.UserNotificationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req markReadReq
		if err := c.Bind(&req); err != nil || len(req.IDs) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		p, _ := middleware.ProfileFromCtx(c)

		if err := deliveries.MarkRead(c.Request().Context(), p.ID, req.IDs); err != nil {
			c.Logger().Errorf("mark notifications read failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.NoContent(http.StatusNoContent)
	}
}

func deleteMyNotificationsHandler(deliveries repository.UserNotificationsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req markReadReq
		if err := c.Bind(&req); err != nil || len(req.IDs) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		p, _ := middleware.ProfileFromCtx(c)

		if err := deliveries.MarkDeleted(c.Request().Context(), p.ID, req.IDs); err != nil {
			c.Logger().Errorf("delete notifications failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.NoContent(http.StatusNoContent)
	}
}

// ---- admin side: authoring + sending ----

type draftReq struct {
	Type      string     `json:"type"`
	Priority  string     `json:"priority"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func createDraftHandler(bcast *broadcast.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req draftReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		typ, ok := model.ParseNotificationType(req.Type)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid type"})
		}

		admin, _ := middleware.ProfileFromCtx(c)

		n, err := bcast.CreateDraft(c.Request().Context(), broadcast.DraftInput{
			Type:      typ,
			Priority:  model.NotificationPriority(req.Priority),
			Title:     req.Title,
			Content:   req.Content,
			ExpiresAt: req.ExpiresAt,
			CreatedBy: admin.ID,
		})
		if err != nil {
			log.Errorf("create draft failed: %v", err)
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		return c.JSON(http.StatusCreated, n)
	}
}

func updateDraftHandler(bcast *broadcast.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req draftReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		err := bcast.UpdateDraft(c.Request().Context(), c.Param("id"),
			req.Title, req.Content, model.NotificationPriority(req.Priority), req.ExpiresAt)
		if err != nil {
			c.Logger().Errorf("update draft failed: %v", err)
			return c.JSON(http.StatusNotFound, map[string]string{"error": "draft not found"})
		}

		return c.NoContent(http.StatusNoContent)
	}
}

func deleteNotificationHandler(bcast *broadcast.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := bcast.Delete(c.Request().Context(), c.Param("id")); err != nil {
			c.Logger().Errorf("delete notification failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func listNotificationsHandler(bcast *broadcast.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := pagination(c)

		f := repository.NotificationFilters{
			Status:   c.QueryParam("status"),
			Type:     c.QueryParam("type"),
			Priority: c.QueryParam("priority"),
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

		items, err := bcast.List(c.Request().Context(), f, limit, offset)
		if err != nil {
			c.Logger().Errorf("list notifications failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(items),
			"results": items,
		})
	}
}

type sendNotificationReq struct {
	UserIDs []string `json:"user_ids"` // empty = all active clients
}

func sendNotificationHandler(bcast *broadcast.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendNotificationReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		n, err := bcast.Send(c.Request().Context(), c.Param("id"), req.UserIDs)
		if err != nil {
			switch {
			case errors.Is(err, broadcast.ErrNotificationMissing):
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			case errors.Is(err, broadcast.ErrNotDraft):
				return c.JSON(http.StatusConflict, map[string]string{"error": "already sent"})
			case errors.Is(err, broadcast.ErrNoRecipients):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "no recipients"})
			}
			log.Errorf("send notification failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"enqueued":   true,
			"recipients": n,
		})
	}
}
