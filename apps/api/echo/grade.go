package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/libreta/backend/core/gradebook"
)

type gradeApi struct {
	svc *gradebook.Service
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *gradebook.Service) {
	api := gradeApi{svc: svc}

	gg := g.Group("/grades", jwt)
	gg.POST("", api.save, evaluatorMiddleware())
	gg.POST("/preview", api.preview, evaluatorMiddleware())
	gg.GET("", api.query, evaluatorMiddleware())
	gg.GET("/annual", api.annual, evaluatorMiddleware())
	gg.POST("/recompute", api.recompute, adminMiddleware())
}

// save answers 200 even when some entries need review: the summary tells them apart.
func (api *gradeApi) save(ctx echo.Context) error {
	var data gradebook.SaveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveRequest")
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	res, err := api.svc.Save(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "saving grades")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradeApi) preview(ctx echo.Context) error {
	var data gradebook.SaveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveRequest")
	}
	res, err := api.svc.Preview(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "previewing grades")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradeApi) query(ctx echo.Context) error {
	filter := new(gradebook.RecordFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to RecordFilter")
	}
	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *gradeApi) annual(ctx echo.Context) error {
	var filter gradebook.AnnualFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AnnualFilter")
	}
	rows, err := api.svc.Annual(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building annual report")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *gradeApi) recompute(ctx echo.Context) error {
	filter := new(gradebook.RecordFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to RecordFilter")
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	res, err := api.svc.Recompute(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "recomputing grades")
	}
	return ctx.JSON(http.StatusOK, res)
}
