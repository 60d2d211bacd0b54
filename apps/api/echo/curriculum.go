package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/libreta/backend/core/grading"
)

func registerCurriculumAPI(g *echo.Group, jwt echo.MiddlewareFunc, curriculum *grading.Curriculum) {
	g.GET("/curriculum", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, curriculum.Areas())
	}, jwt)
}
