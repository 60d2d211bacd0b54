package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/gradebook"
	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/user"
	"github.com/libreta/backend/tests"
)

func setupGrades(t *testing.T) (app *testApp, teacher, admin user.User) {
	app = setup(t)
	teacher = testutil.CreateUser(t, app.UserRepo, "Prof. Huamán", "huaman", "", "", []string{user.RoleTeacher}, true)
	admin = testutil.CreateUser(t, app.UserRepo, "Director", "director", "", "", []string{user.RoleAdminPrincipal}, true)
	testutil.CreateStudent(t, app.StudentRepo, "70000001", "Pérez", "García", "José", 2, "A", 2024)
	testutil.CreateStudent(t, app.StudentRepo, "70000002", "Quispe", "Mamani", "Rosa", 2, "A", 2024)
	testutil.CreateStudent(t, app.StudentRepo, "70000003", "Quispe", "Mamani", "Rosa", 2, "A", 2024)
	testutil.CreateStudent(t, app.StudentRepo, "70000004", "Torres", "Díaz", "Ana", 2, "A", 2024)
	return app, teacher, admin
}

func mathRequest(bimester int, entries ...grading.Entry) gradebook.SaveRequest {
	return gradebook.SaveRequest{Grade: 2, Section: "a", Year: 2024, Area: "mathematics", Bimester: bimester, Entries: entries}
}

func Test_gradeApi_save(t *testing.T) {
	app, teacher, _ := setupGrades(t)
	token := app.token(t, teacher)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "invalid request", token: token,
			body:     marchallObj(t, gradebook.SaveRequest{Grade: 2, Section: "A", Year: 2024, Area: "astrology"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"area":     "unknown subject area",
				"bimester": "this field is required",
				"entries":  "this field is required",
			}),
		},
		{
			name: "bimester out of range", token: token,
			body:     marchallObj(t, mathRequest(5, grading.Entry{EnrollmentID: "70000001", Scores: [][]string{{"A"}}})),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"bimester": "bimester must be between 1 and 4"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/grades"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.serve(tt))
		})
	}

	t.Run("partial batch", func(t *testing.T) {
		req := mathRequest(1,
			grading.Entry{StudentName: "perez garcia, jose", Scores: [][]string{{"AD", "AD", "A", "B"}, {"C", "C", "C", "-"}}},
			grading.Entry{StudentName: "Quispe Mamani, Rosa", Scores: [][]string{{"A"}}},
			grading.Entry{StudentName: "Quispe Mamani, Rosa", EnrollmentID: "70000003", Scores: [][]string{{"B"}}},
			grading.Entry{StudentName: "Nadie Nunca, Juan", Scores: [][]string{{"A"}}},
			grading.Entry{StudentName: "TORRES DÍAZ, ANA", Scores: [][]string{{"AD", "X"}}},
		)
		rec := app.serve(httpTest{method: http.MethodPost, path: "/v1/grades", token: token, body: marchallObj(t, req)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res gradebook.SaveResult
		decode(t, rec, &res)
		assert.Equal(t, "2 saved, 3 need review", res.Message)
		assert.Equal(t, 5, res.Summary.Total)
		require.Len(t, res.Entries, 5)
		assert.Equal(t, gradebook.StatusSaved, res.Entries[0].Status)
		assert.Equal(t, "70000001", res.Entries[0].EnrollmentID)
		require.NotNil(t, res.Entries[0].Record)
		assert.Equal(t, grading.B, res.Entries[0].Record.Overall)
		assert.NotEmpty(t, res.Entries[0].Record.ID)
		assert.False(t, res.Entries[0].Record.CreatedAt.IsZero())
		assert.Equal(t, gradebook.StatusNeedsReview, res.Entries[1].Status)
		assert.Len(t, res.Entries[1].Candidates, 2)
		assert.Equal(t, grading.ErrNoMatch.Error(), res.Entries[3].Error)
		assert.Contains(t, res.Entries[4].Error, grading.ErrInvalidScoreValue.Error())

		entries, err := app.AuditSvc.Query(context.Background(), &audit.QueryFilter{Action: audit.ActionGradesSave})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, teacher.ID, entries[0].ActorID)
		assert.Equal(t, teacher.Name, entries[0].ActorName)
	})
}

func Test_gradeApi_preview(t *testing.T) {
	app, teacher, _ := setupGrades(t)

	req := mathRequest(1, grading.Entry{StudentName: "Pérez García, José", Scores: [][]string{{"A", "B"}}})
	rec := app.serve(httpTest{method: http.MethodPost, path: "/v1/grades/preview", token: app.token(t, teacher), body: marchallObj(t, req)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res gradebook.SaveResult
	decode(t, rec, &res)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, gradebook.StatusReady, res.Entries[0].Status)
	assert.Equal(t, "1 saved, 0 need review", res.Message)

	records, err := app.GradebookSvc.Query(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func Test_gradeApi_queryAndAnnual(t *testing.T) {
	app, teacher, _ := setupGrades(t)
	token := app.token(t, teacher)

	for b, score := range []string{"A", "AD"} {
		req := mathRequest(b+1, grading.Entry{EnrollmentID: "70000001", Scores: [][]string{{score}}})
		rec := app.serve(httpTest{method: http.MethodPost, path: "/v1/grades", token: token, body: marchallObj(t, req)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	t.Run("query", func(t *testing.T) {
		rec := app.serve(httpTest{method: http.MethodGet, path: "/v1/grades?area=mathematics&bimester=2", token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var records []grading.GradeRecord
		decode(t, rec, &records)
		require.Len(t, records, 1)
		assert.Equal(t, "70000001", records[0].EnrollmentID)
		assert.Equal(t, grading.AD, records[0].Overall)
		assert.Equal(t, teacher.ID, records[0].UpdatedBy)
	})

	t.Run("annual", func(t *testing.T) {
		rec := app.serve(httpTest{method: http.MethodGet, path: "/v1/grades/annual?grade=2&section=a&year=2024&area=mathematics", token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var rows []gradebook.AnnualRow
		decode(t, rec, &rows)
		require.Len(t, rows, 4)
		assert.Equal(t, "70000001", rows[0].EnrollmentID)
		assert.Equal(t, [grading.Bimesters]grading.Score{grading.A, grading.AD, grading.Absent, grading.Absent}, rows[0].Bimesters)
		// (3 + 4) / 2 rounds half up
		assert.Equal(t, grading.AD, rows[0].Final)
		assert.Equal(t, grading.Absent, rows[1].Final)
	})

	t.Run("annual requires a classroom", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodGet, path: "/v1/grades/annual?area=mathematics", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"grade":   "this field is required",
				"section": "this field is required",
				"year":    "this field is required",
			}),
		}
		checkCodeAndData(t, tt, app.serve(tt))
	})
}

func Test_gradeApi_recompute(t *testing.T) {
	app, teacher, admin := setupGrades(t)

	stale := grading.GradeRecord{EnrollmentID: "70000001", Area: "DPCC", Bimester: 3, Overall: grading.C}
	stale.Slots[0] = [grading.MaxDimensions]grading.Score{grading.AD, grading.AD}
	_, err := app.GradeRepo.UpsertRecords(context.Background(), []grading.GradeRecord{stale})
	require.NoError(t, err)

	body := marchallObj(t, gradebook.RecordFilter{Bimester: 3})
	tests := []httpTest{
		{
			name: "Admin required", token: app.token(t, teacher), body: body,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "recomputed", token: app.token(t, admin), body: body,
			wantCode: http.StatusOK, wantData: marchallObj(t, gradebook.RecomputeResult{Affected: 1}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/grades/recompute"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.serve(tt))
		})
	}

	records, err := app.GradebookSvc.Query(context.Background(), &gradebook.RecordFilter{Area: "DPCC"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, grading.AD, records[0].Overall)
	assert.Equal(t, admin.ID, records[0].UpdatedBy)
}
