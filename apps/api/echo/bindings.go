package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/libreta/backend/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the ordering query param, keeping only the fields listed in allowed and
// mapping them to their column.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	ord.Orderings = core.AllowedOrderings(core.ParseOrdering(val), allowed)
}

// bindTime parses an RFC 3339 timestamp or a date (2006-01-02) query param into dst.
// A missing param leaves dst untouched.
func bindTime(ctx echo.Context, param string, dst *time.Time) error {
	val := ctx.QueryParam(param)
	if val == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, val); err == nil {
			*dst = t.UTC()
			return nil
		}
	}
	return core.NewValidationError(errors.Errorf("invalid %s", param), core.FieldError{
		Field: param,
		Error: "must be a date (2006-01-02) or an RFC 3339 timestamp",
	})
}
