package http

import (
	"errors"
	"net/http"

	"github.com/essoham7/chinelivre/internal/http/middleware"
	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/service/chat"
	"github.com/essoham7/chinelivre/internal/service/packages"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// guardPackageAccess loads the package and hides it from clients who do
// not own it.
func guardPackageAccess(c echo.Context, pkgSvc *packages.Service) (*model.Package, error) {
	p, _ := middleware.ProfileFromCtx(c)

	pkg, err := pkgSvc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if p.Role == model.RoleClient && pkg.ClientID != p.ID {
		return nil, packages.ErrPackageMissing
	}
	return pkg, nil
}

func listChatHandler(chatSvc *chat.Service, pkgSvc *packages.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := guardPackageAccess(c, pkgSvc); err != nil {
			if errors.Is(err, packages.ErrPackageMissing) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			}
			c.Logger().Errorf("load package failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		reader, _ := middleware.ProfileFromCtx(c)

		limit, offset := pagination(c)
		msgs, err := chatSvc.History(c.Request().Context(), c.Param("id"), limit, offset)
		if err != nil {
			c.Logger().Errorf("list chat failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		// Unread badge for the conversation header.
		unread, err := chatSvc.UnreadCount(c.Request().Context(), c.Param("id"), reader.ID)
		if err != nil {
			c.Logger().Errorf("count unread failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(msgs),
			"unread":  unread,
			"results": msgs,
		})
	}
}

type sendChatReq struct {
	Content string `json:"content"`
}

func sendChatHandler(chatSvc *chat.Service, pkgSvc *packages.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendChatReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		sender, _ := middleware.ProfileFromCtx(c)

		if _, err := guardPackageAccess(c, pkgSvc); err != nil {
			if errors.Is(err, packages.ErrPackageMissing) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			}
			c.Logger().Errorf("load package failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		msg, err := chatSvc.Send(c.Request().Context(), c.Param("id"), *sender, req.Content)
		if err != nil {
			switch {
			case errors.Is(err, chat.ErrEmptyMessage):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty message"})
			case errors.Is(err, chat.ErrMessageTooLong):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "message too long"})
			}
			log.Errorf("send chat failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusCreated, msg)
	}
}

type markReadReq struct {
	IDs []string `json:"ids"`
}

func markChatReadHandler(chatSvc *chat.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req markReadReq
		if err := c.Bind(&req); err != nil || len(req.IDs) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		reader, _ := middleware.ProfileFromCtx(c)

		if err := chatSvc.MarkRead(c.Request().Context(), reader.ID, req.IDs); err != nil {
			c.Logger().Errorf("mark chat read failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.NoContent(http.StatusNoContent)
	}
}
