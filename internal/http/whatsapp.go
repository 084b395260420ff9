package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/service/packages"
	"github.com/essoham7/chinelivre/internal/whatsapp"
	echo "github.com/labstack/echo/v4"
)

// whatsappLinkHandler returns a wa.me deep link to the package's client
// with a prefilled message. Staff use it to jump from a package card
// straight into a WhatsApp conversation.
func whatsappLinkHandler(pkgSvc *packages.Service, profiles repository.ProfilesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		pkg, err := pkgSvc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, packages.ErrPackageMissing) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			}
			c.Logger().Errorf("load package failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		client, err := profiles.GetByID(c.Request().Context(), pkg.ClientID)
		if err != nil {
			c.Logger().Errorf("load client failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		if client == nil || client.Phone == nil || strings.TrimSpace(*client.Phone) == "" {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "client has no phone"})
		}

		message := c.QueryParam("message")
		if message == "" {
			message = fmt.Sprintf("Bonjour, concernant le colis %s", pkg.TrackingNumber)
		}

		return c.JSON(http.StatusOK, map[string]string{
			"url": whatsapp.BuildURL(*client.Phone, message),
		})
	}
}
