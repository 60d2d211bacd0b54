package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/libreta/backend/core/audit"
)

func registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *audit.Service) {
	g.GET("/audit", func(ctx echo.Context) error {
		filter := new(audit.QueryFilter)
		if err := ctx.Bind(filter); err != nil {
			return errors.Wrap(err, "binding to audit.QueryFilter")
		}
		if err := bindTime(ctx, "from", &filter.From); err != nil {
			return err
		}
		if err := bindTime(ctx, "to", &filter.To); err != nil {
			return err
		}
		entries, err := svc.Query(ctx.Request().Context(), filter)
		if err != nil {
			return errors.Wrap(err, "querying audit entries")
		}
		return ctx.JSON(http.StatusOK, entries)
	}, jwt, adminMiddleware())
}
