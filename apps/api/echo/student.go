package echoapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"

	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/student"
)

// Resolution statuses
const (
	resolvedMatched   = "matched"
	resolvedAmbiguous = "ambiguous"
	resolvedNoMatch   = "no_match"
)

var studentOrderingFields = map[string]string{
	"enrollment_id":    "enrollment_id",
	"paternal_surname": "paternal_surname",
	"maternal_surname": "maternal_surname",
	"given_names":      "given_names",
	"grade":            "grade",
	"section":          "section",
	"year":             "year",
	"created_at":       "created_at",
}

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, evaluatorMiddleware())
	sg.GET("/:enrollment_id", api.get, evaluatorMiddleware())
	sg.POST("", api.create, adminMiddleware())
	sg.POST("/import", api.importRoster, adminMiddleware())
	sg.POST("/resolve", api.resolve, evaluatorMiddleware())
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, studentOrderingFields)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return pkgerrors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) get(ctx echo.Context) error {
	st, err := api.svc.Get(ctx.Request().Context(), ctx.Param("enrollment_id"))
	if err != nil {
		return pkgerrors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return pkgerrors.Wrap(err, "binding to NewStudent")
	}
	st, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return pkgerrors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) importRoster(ctx echo.Context) error {
	var data ImportRequest
	if err := ctx.Bind(&data); err != nil {
		return pkgerrors.Wrap(err, "binding to ImportRequest")
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "getting context actor")
	}
	res, err := api.svc.Import(ctx.Request().Context(), actor, data.Students)
	if err != nil {
		return pkgerrors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, res)
}

// resolve matches free-text names against the roster of one classroom.
func (api *studentApi) resolve(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return pkgerrors.Wrap(err, "binding to ResolveRequest")
	}
	idx, err := api.svc.Index(ctx.Request().Context(), data.RosterFilter)
	if err != nil {
		return pkgerrors.Wrap(err, "indexing roster")
	}

	results := make([]ResolveResult, 0, len(data.Names))
	for _, name := range data.Names {
		res := ResolveResult{Name: name}
		st, err := idx.Resolve(name)
		switch {
		case err == nil:
			res.Status = resolvedMatched
			res.Student = &st
		case errors.Is(err, grading.ErrAmbiguousMatch):
			res.Status = resolvedAmbiguous
			res.Candidates = idx.Candidates(name)
		default:
			res.Status = resolvedNoMatch
		}
		results = append(results, res)
	}
	return ctx.JSON(http.StatusOK, results)
}

type (
	ImportRequest struct {
		Students []student.NewStudent `json:"students"`
	}

	ResolveRequest struct {
		student.RosterFilter
		Names []string `json:"names"`
	}

	ResolveResult struct {
		Name       string                    `json:"name"`
		Status     string                    `json:"status"`
		Student    *grading.StudentIdentity  `json:"student,omitempty"`
		Candidates []grading.StudentIdentity `json:"candidates,omitempty"`
	}
)
