package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/essoham7/chinelivre/internal/http/middleware"
	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/service/packages"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type createPackageReq struct {
	TrackingNumber   string     `json:"tracking_number"`
	ClientID         string     `json:"client_id"`
	Content          string     `json:"content"`
	WeightKg         *float64   `json:"weight_kg"`
	VolumeM3         *float64   `json:"volume_m3"`
	EstimatedArrival *time.Time `json:"estimated_arrival"`
}

func createPackageHandler(pkgSvc *packages.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createPackageReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		admin, _ := middleware.ProfileFromCtx(c)

		pkg, err := pkgSvc.Create(c.Request().Context(), packages.CreateInput{
			TrackingNumber:   req.TrackingNumber,
			ClientID:         req.ClientID,
			Content:          req.Content,
			WeightKg:         req.WeightKg,
			VolumeM3:         req.VolumeM3,
			EstimatedArrival: req.EstimatedArrival,
			CreatedBy:        admin.ID,
		})
		if err != nil {
			switch {
			case errors.Is(err, packages.ErrTrackingTaken):
				return c.JSON(http.StatusConflict, map[string]string{"error": "tracking_number_taken"})
			case errors.Is(err, packages.ErrUnknownClient):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown_client"})
			}
			log.Errorf("create package failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusCreated, pkg)
	}
}

func listPackagesHandler(pkgSvc *packages.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.ProfileFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		limit, offset := pagination(c)

		// clients only ever see their own packages
		clientID := c.QueryParam("client_id")
		if p.Role == model.RoleClient {
			clientID = p.ID
		}

		pkgs, err := pkgSvc.List(c.Request().Context(), clientID, limit, offset)
		if err != nil {
			c.Logger().Errorf("list packages failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(pkgs),
			"results": pkgs,
		})
	}
}

func getPackageHandler(pkgSvc *packages.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, _ := middleware.ProfileFromCtx(c)

		pkg, err := pkgSvc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, packages.ErrPackageMissing) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			}
			c.Logger().Errorf("get package failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		if p.Role == model.RoleClient && pkg.ClientID != p.ID {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		return c.JSON(http.StatusOK, pkg)
	}
}

type updateStatusReq struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

func updatePackageStatusHandler(pkgSvc *packages.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateStatusReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		status, ok := model.ParseStatus(req.Status)
		if !ok || req.Status == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
		}

		pkg, err := pkgSvc.UpdateStatus(c.Request().Context(), c.Param("id"), status, req.Location)
		if err != nil {
			if errors.Is(err, packages.ErrPackageMissing) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			}
			log.Errorf("update status failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, pkg)
	}
}

func deletePackageHandler(pkgSvc *packages.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := pkgSvc.Delete(c.Request().Context(), c.Param("id")); err != nil {
			c.Logger().Errorf("delete package failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func pagination(c echo.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
