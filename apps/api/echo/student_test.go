package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/libreta/backend/apps/api/echo"
	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/student"
	"github.com/libreta/backend/core/user"
	"github.com/libreta/backend/tests"
)

func Test_studentApi_query(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "", "", []string{user.RoleTeacher}, true)
	nobody := testutil.CreateUser(t, app.UserRepo, "Nobody", "nobody", "", "", nil, true)

	jose := testutil.CreateStudent(t, app.StudentRepo, "70000001", "Pérez", "García", "José", 2, "A", 2024)
	rosa := testutil.CreateStudent(t, app.StudentRepo, "70000002", "Quispe", "Mamani", "Rosa", 2, "A", 2024)
	ana := testutil.CreateStudent(t, app.StudentRepo, "70000004", "Torres", "Díaz", "Ana", 2, "B", 2024)
	luis := testutil.CreateStudent(t, app.StudentRepo, "70000003", "Álvarez", "Ruiz", "Luis", 3, "A", 2024)

	token := app.token(t, teacher)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Evaluator required", path: "/v1/students", token: app.token(t, nobody), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "roster order", path: "/v1/students", token: token, wantData: marchallList(t, jose, rosa, ana, luis)},
		{name: "classroom", path: "/v1/students?grade=2&section=a&year=2024", token: token, wantData: marchallList(t, jose, rosa)},
		{name: "search", path: "/v1/students?search=QUISPE", token: token, wantData: marchallList(t, rosa)},
		{name: "search by id", path: "/v1/students?search=70000004", token: token, wantData: marchallList(t, ana)},
		{name: "ordering", path: "/v1/students?ordering=-enrollment_id", token: token, wantData: marchallList(t, ana, luis, rosa, jose)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.serve(tt))
		})
	}
}

func Test_studentApi_get(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "", "", []string{user.RoleTeacher}, true)
	jose := testutil.CreateStudent(t, app.StudentRepo, "70000001", "Pérez", "García", "José", 2, "A", 2024)

	token := app.token(t, teacher)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/students/70000001", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "found", path: "/v1/students/70000001", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, jose)},
		{
			name: "not found", path: "/v1/students/79999999", token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.serve(tt))
		})
	}
}

func Test_studentApi_create(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin", "", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "", "", []string{user.RoleTeacher}, true)
	testutil.CreateStudent(t, app.StudentRepo, "70000001", "Pérez", "García", "José", 2, "A", 2024)

	valid := student.NewStudent{
		EnrollmentID: " 70000002 ", PaternalSurname: "Quispe", MaternalSurname: "Mamani", GivenNames: "Rosa",
		Grade: 2, Section: "a", Year: 2024,
	}
	taken := valid
	taken.EnrollmentID = "70000001"
	badID := valid
	badID.EnrollmentID = "7000"
	badID.Section = "AB"

	tests := []httpTest{
		{
			name: "Admin required", token: app.token(t, teacher), body: marchallObj(t, valid),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid fields", token: app.token(t, admin), body: marchallObj(t, badID),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"enrollment_id": "enrollment id must be an 8 digit DNI",
				"section":       "section must be a single letter",
			}),
		},
		{
			name: "already enrolled", token: app.token(t, admin), body: marchallObj(t, taken),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"enrollment_id": student.ErrEnrollmentExists.Error()}),
		},
		{name: "created", token: app.token(t, admin), body: marchallObj(t, valid), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var st student.Student
				decode(t, rec, &st)
				assert.Equal(t, "70000002", st.EnrollmentID)
				assert.Equal(t, "A", st.Section)
			}
		})
	}
}

func Test_studentApi_import(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin", "", "", []string{user.RoleAdmin}, true)
	testutil.CreateStudent(t, app.StudentRepo, "70000001", "Pérez", "García", "José", 2, "A", 2024)

	body := marchallObj(t, echoapi.ImportRequest{Students: []student.NewStudent{
		{EnrollmentID: "70000001", PaternalSurname: "Pérez", MaternalSurname: "García", GivenNames: "José", Grade: 2, Section: "A", Year: 2024},
		{EnrollmentID: "70000002", PaternalSurname: "Quispe", MaternalSurname: "Mamani", GivenNames: "Rosa", Grade: 2, Section: "A", Year: 2024},
		{EnrollmentID: "x", PaternalSurname: "Torres", GivenNames: "Ana", Grade: 2, Section: "A", Year: 2024},
	}})
	rec := app.serve(httpTest{method: http.MethodPost, path: "/v1/students/import", token: app.token(t, admin), body: body})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res student.ImportResult
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, map[int]string{3: `enrollment_id: failed on "dni"`}, res.Errors)
}

func Test_studentApi_resolve(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "", "", []string{user.RoleTeacher}, true)
	jose := testutil.CreateStudent(t, app.StudentRepo, "70000001", "Pérez", "García", "José", 2, "A", 2024)
	rosa1 := testutil.CreateStudent(t, app.StudentRepo, "70000002", "Quispe", "Mamani", "Rosa", 2, "A", 2024)
	rosa2 := testutil.CreateStudent(t, app.StudentRepo, "70000003", "Quispe", "Mamani", "Rosa", 2, "A", 2024)
	testutil.CreateStudent(t, app.StudentRepo, "70000004", "Torres", "Díaz", "Ana", 2, "B", 2024)

	joseID := jose.Identity()
	tests := []httpTest{
		{
			name: "roster required", body: marchallObj(t, echoapi.ResolveRequest{Names: []string{"x"}}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"grade":   "this field is required",
				"section": "this field is required",
				"year":    "this field is required",
			}),
		},
		{
			name: "resolved",
			body: marchallObj(t, echoapi.ResolveRequest{
				RosterFilter: student.RosterFilter{Grade: 2, Section: "a", Year: 2024},
				Names:        []string{"  PEREZ  garcia, JOSÉ ", "Quispe Mamani, Rosa", "Torres Díaz, Ana"},
			}),
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				echoapi.ResolveResult{Name: "  PEREZ  garcia, JOSÉ ", Status: "matched", Student: &joseID},
				echoapi.ResolveResult{
					Name: "Quispe Mamani, Rosa", Status: "ambiguous",
					Candidates: []grading.StudentIdentity{rosa1.Identity(), rosa2.Identity()},
				},
				echoapi.ResolveResult{Name: "Torres Díaz, Ana", Status: "no_match"},
			),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students/resolve"
		tt.token = app.token(t, teacher)

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.serve(tt))
		})
	}
}
