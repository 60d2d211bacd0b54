package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/libreta/backend/apps/api/echo"
	"github.com/libreta/backend/core/user"
	"github.com/libreta/backend/tests"
)

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	path := func(search, ordering string, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}

	now := time.Now().UTC()
	inactive := testutil.CreateUser(t, app.UserRepo, "N Dog", "ndog", "ndog@colegio.pe", "", []string{user.RoleTeacher}, false, now)
	teacher := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "teacher@colegio.pe", "", []string{user.RoleTeacher}, true, now.Add(1*time.Hour))
	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin", "admin@colegio.pe", "", []string{user.RoleAdmin}, true, now.Add(2*time.Hour))
	principal := testutil.CreateUser(t, app.UserRepo, "Principal", "princip", "princip@colegio.pe", "", []string{user.RoleAdminPrincipal}, true, now.Add(3*time.Hour))

	adminToken := app.token(t, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: app.token(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, principal, admin, teacher, inactive)},
		{name: "search (unknown)", path: path("lol", ""), token: adminToken, wantData: marchallList(t)},
		{name: "search=ADM", path: path("ADM", ""), token: adminToken, wantData: marchallList(t, admin)},
		{name: "role=admin:", path: path("", "", user.RoleAdmin), token: adminToken, wantData: marchallList(t, principal, admin)},
		{name: "role=teacher:", path: path("", "", user.RoleTeacher), token: adminToken, wantData: marchallList(t, teacher, inactive)},
		{name: "order by name", path: path("", "name"), token: adminToken, wantData: marchallList(t, admin, inactive, principal, teacher)},
		{name: "order by created_at", path: path("", "created_at"), token: adminToken, wantData: marchallList(t, inactive, teacher, admin, principal)},
		{name: "unknown ordering ignored", path: path("", "password_hash"), token: adminToken, wantData: marchallList(t, principal, admin, teacher, inactive)},
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

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	pwd := "Tz9#kLm!2vQ"
	testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "teacher@colegio.pe", pwd, []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, app.UserRepo, "N Dog", "ndog", "ndog@colegio.pe", pwd, []string{user.RoleTeacher}, false)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.LoginRequest{Username: reqMsg, Password: reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: pwd}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "teacher", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ndog@colegio.pe", Password: pwd}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "logged in", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: " TEACHER ", Password: pwd})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)

				// the token opens authed endpoints
				rec = app.serve(httpTest{method: http.MethodGet, path: "/v1/curriculum", token: resp.Token})
				assert.Equal(t, http.StatusOK, rec.Code)
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "admin", "admin@colegio.pe", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "teacher@colegio.pe", "", []string{user.RoleTeacher}, true)

	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "Rosa Quispe",
			Username:        uname,
			Password:        "Tz9#kLm!2vQ",
			PasswordConfirm: "Tz9#kLm!2vQ",
			Roles:           roles,
		})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: app.token(t, teacher), body: newUser("rquispe", user.RoleTeacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "username taken", token: app.token(t, admin), body: newUser("teacher", user.RoleTeacher),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "weak password", token: app.token(t, admin),
			body: marchallObj(t, user.NewUser{Name: "Rosa", Username: "rosa", Password: "abc", PasswordConfirm: "abc"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "role above own", token: app.token(t, admin), body: newUser("rquispe", user.RoleAdminOwner),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{name: "created", token: app.token(t, admin), body: newUser("rquispe", user.RoleTeacher), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var usr user.User
				decode(t, rec, &usr)
				assert.Equal(t, "rquispe", usr.Username)
				assert.True(t, usr.IsActive)
				assert.Equal(t, []string{user.RoleTeacher}, usr.Roles)
			}
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	inactive := testutil.CreateUser(t, app.UserRepo, "N Dog", "ndog", "ndog@colegio.pe", "", []string{user.RoleTeacher}, false)
	teacher := testutil.CreateUser(t, app.UserRepo, "Teacher", "teacher", "teacher@colegio.pe", "", []string{user.RoleTeacher}, true)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    app.conf.AppName,
			Subject:   teacher.ID,
			Audience:  "Libreta",
			ExpiresAt: now.Add(app.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * app.conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsTeacher:    true,
		Roles:        teacher.Roles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(app.conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: app.token(t, inactive), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: app.token(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(tt)
			checkCodeAndData(t, tt, rec)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_userApi_confirmPasswordReset(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.UserRepo, "Rosa Quispe", "rquispe", "rquispe@colegio.pe", "Tz9#kLm!2vQ", []string{user.RoleTeacher}, true)
	tokens := user.NewResetTokens(app.conf.SecretKey, app.conf.PasswordResetTimeoutDelta)
	uid, token, err := app.UserSvc.IssueResetToken(context.Background(), tokens, "rquispe")
	require.NoError(t, err)

	newPwd := "Wq4!nB7#rT2z"
	reset := func(uid, token, pwd string) []byte {
		return marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: pwd})
	}
	invalidToken := marchallObj(t, map[string]string{"token": user.ErrInvalidToken.Error()})

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"uid":              "this field is required",
				"token":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{name: "unknown uid", body: reset(user.EncodeUID(user.User{ID: "lol"}), token, newPwd), wantCode: http.StatusBadRequest, wantData: invalidToken},
		{name: "bad token", body: reset(uid, "HE4TS-sigsig", newPwd), wantCode: http.StatusBadRequest, wantData: invalidToken},
		{
			name: "weak password", body: reset(uid, token, "rosaquispe"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "reset", body: reset(uid, token, newPwd), wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		// the password hash changed, so the token is spent
		{name: "token reused", body: reset(uid, token, "Zx8$vN3@pL5q"), wantCode: http.StatusBadRequest, wantData: invalidToken},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.serve(tt))
		})
	}

	rec := app.serve(httpTest{
		method: http.MethodPost, path: "/v1/users/login",
		body: marchallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: newPwd}),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
