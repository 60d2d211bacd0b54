package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/user"
	"github.com/libreta/backend/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Deps, *bytes.Buffer) {
	deps := testutil.NewDeps()
	out := new(bytes.Buffer)
	return &commandLine{
		out:          out,
		usrSvc:       deps.UserSvc,
		tokens:       user.NewResetTokens("test-secret", 24*time.Hour),
		studentSvc:   deps.StudentSvc,
		gradebookSvc: deps.GradebookSvc,
	}, deps, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
		}
		return
	}
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	t.Run("in-memory storage", func(t *testing.T) {
		err := cli.run([]string{"admin", "migrate", "up"})
		assert.Equal(t, errNoDatabase, err)
	})

	cli.db = sqlx.NewDb(nil, "postgres")
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, deps, _ := setup(t)

	existing := testutil.CreateUser(t, deps.UserRepo, "N Dog", "ndog", "ndog@colegio.pe", "mdr", []string{user.RoleTeacher}, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "rosa"}, wantErr: errHelp},
		{name: "new teacher", args: []string{"adduser", "-username", "rosa"}, extra: extra{pwd: "lol"}},
		{name: "new admin", args: []string{"adduser", "-email", "Director@Colegio.pe", "-admin"}, extra: extra{pwd: "lol"}},
		{name: "reactivate", args: []string{"adduser", "-username", existing.Username}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	rosa, err := deps.UserSvc.GetByUsernameOrEmail(ctx, "rosa")
	require.NoError(t, err)
	assert.True(t, rosa.IsActive)
	assert.Equal(t, user.TeacherRoles, rosa.Roles)
	assert.NoError(t, rosa.CheckPassword("lol"))

	director, err := deps.UserSvc.GetByUsernameOrEmail(ctx, "director@colegio.pe")
	require.NoError(t, err)
	assert.Equal(t, user.AllRoles, director.Roles)

	reactivated, err := deps.UserSvc.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)
	assert.NoError(t, reactivated.CheckPassword("lmao"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, deps, _ := setup(t)

	usr := testutil.CreateUser(t, deps.UserRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := deps.UserRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_resetLink(t *testing.T) {
	cli, deps, out := setup(t)

	usr := testutil.CreateUser(t, deps.UserRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)
	testutil.CreateUser(t, deps.UserRepo, "N Dog", "ndog", "ndog@test.cd", "mdr", nil, false)

	tests := []cliTest{
		{name: "no args", args: []string{"resetlink"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetlink", "-username", "lol"}, wantErr: user.ErrNotFound},
		{name: "inactive user", args: []string{"resetlink", "-username", "ndog"}, wantErr: user.ErrNotFound},
		{name: "issued", args: []string{"resetlink", "-username", "AWE@test.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	// usage text of the failed runs comes first
	var uid, token string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "uid: ") {
			uid = strings.TrimPrefix(line, "uid: ")
		}
		if strings.HasPrefix(line, "token: ") {
			token = strings.TrimPrefix(line, "token: ")
		}
	}
	assert.Equal(t, user.EncodeUID(usr), uid)
	require.NotEmpty(t, token, out.String())

	err := deps.UserSvc.ResetPassword(context.Background(), cli.tokens, user.ResetUserPassword{
		UID: uid, Token: token, Password: "Tz9#kLm!2vQ", PasswordConfirm: "Tz9#kLm!2vQ",
	})
	require.NoError(t, err)
}

func Test_commandLine_importRoster(t *testing.T) {
	cli, deps, out := setup(t)
	testutil.CreateStudent(t, deps.StudentRepo, "70000001", "Pérez", "García", "José", 2, "A", 2024)

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, ioutil.WriteFile(path, []byte(content), 0o600))
		return path
	}
	roster := write("roster.csv", strings.Join([]string{
		"Enrollment_ID,Paternal_Surname,Maternal_Surname,Given_Names,Grade,Section",
		"70000001,Pérez,García,José,2,A",
		"70000002,Quispe,Mamani,Rosa,2,a",
		"7000,Torres,Díaz,Ana,2,A",
		"70000004,Torres,Díaz,Ana,segundo,A",
	}, "\n"))
	noYear := write("no-year.csv", "enrollment_id,paternal_surname,maternal_surname,given_names,grade,section\n")
	noSection := write("no-section.csv", "enrollment_id,paternal_surname,maternal_surname,given_names,grade,year\n")

	tests := []cliTest{
		{name: "no args", args: []string{"importroster"}, wantErr: errHelp},
		{name: "missing year", args: []string{"importroster", "-file", noYear}, wantErrStr: "reading " + noYear + `: missing column "year" and no -year given`},
		{name: "missing column", args: []string{"importroster", "-file", noSection}, wantErrStr: "reading " + noSection + `: missing column "section"`},
		{name: "imported", args: []string{"importroster", "-file", roster, "-year", "2024"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	assert.Contains(t, out.String(), "1 created, 1 already enrolled, 2 rejected\n")
	assert.Contains(t, out.String(), `  line 4: enrollment_id: failed on "dni"`)
	assert.Contains(t, out.String(), `  line 5: grade: failed on "required"`)

	ctx := context.Background()
	rosa, err := deps.StudentSvc.Get(ctx, "70000002")
	require.NoError(t, err)
	assert.Equal(t, "A", rosa.Section)
	assert.Equal(t, 2024, rosa.Year)

	entries, err := deps.AuditSvc.Query(ctx, &audit.QueryFilter{Action: audit.ActionStudentsImport})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.System.ID, entries[0].ActorID)
	assert.Equal(t, 1, entries[0].Affected)
	assert.Equal(t, 2, entries[0].NeedsReview)
}

func Test_commandLine_recompute(t *testing.T) {
	cli, deps, out := setup(t)
	ctx := context.Background()

	stale := grading.GradeRecord{EnrollmentID: "70000001", Area: "DPCC", Bimester: 3, Overall: grading.C}
	stale.Slots[0] = [grading.MaxDimensions]grading.Score{grading.AD, grading.A}
	orphan := grading.GradeRecord{EnrollmentID: "70000002", Area: "LATIN", Bimester: 3}
	other := grading.GradeRecord{EnrollmentID: "70000001", Area: "DPCC", Bimester: 1, Overall: grading.C}
	_, err := deps.GradeRepo.UpsertRecords(ctx, []grading.GradeRecord{stale, orphan, other})
	require.NoError(t, err)

	require.NoError(t, cli.run([]string{"admin", "recompute", "-bimester", "3"}))
	assert.Contains(t, out.String(), "1 recomputed, 1 failed\n")
	assert.Contains(t, out.String(), "  70000002/LATIN/3: ")

	records, err := deps.GradebookSvc.Query(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		switch {
		case rec.Area == "DPCC" && rec.Bimester == 3:
			// (4 + 3) / 2 rounds half up
			assert.Equal(t, grading.AD, rec.Overall)
			assert.Equal(t, audit.System.ID, rec.UpdatedBy)
		case rec.Area == "DPCC" && rec.Bimester == 1:
			assert.Equal(t, grading.C, rec.Overall, "outside the filter")
		}
	}
}
