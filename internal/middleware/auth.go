package middleware

import (
	"strings"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

// Auth verifies the bearer token and stores the caller on the context.
// Websocket upgrades may pass the token as the access_token query parameter
// since browsers cannot set headers on them.
func Auth(a domrepo.Authenticator, l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("Missing or invalid authorization header"))
			}

			p, err := a.Authenticate(c.Request().Context(), token)
			if err != nil {
				l.Debug("reject bearer token",
					logger.String("path", c.Path()),
					logger.Error(err))
				return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("Invalid or expired token"))
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if header == "" && strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket") {
		token := c.QueryParam("access_token")
		return token, token != ""
	}
	return "", false
}

// Principal returns the caller stored by Auth.
func Principal(c echo.Context) (*models.Principal, bool) {
	p, ok := c.Get(principalKey).(*models.Principal)
	return p, ok && p != nil
}
