// Package testutil holds fixtures shared by the service, API and CLI tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/gradebook"
	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/student"
	"github.com/libreta/backend/core/user"
	dummydb "github.com/libreta/backend/storage/database/dummy"
)

// NewValidator returns a validator with every custom tag registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Deps wires the services on top of a fresh in-memory database.
type Deps struct {
	DB           *dummydb.DB
	Validate     *validator.Validate
	Translator   ut.Translator
	UserRepo     user.Repository
	StudentRepo  student.Repository
	GradeRepo    gradebook.Repository
	AuditRepo    audit.Repository
	UserSvc      *user.Service
	StudentSvc   *student.Service
	GradebookSvc *gradebook.Service
	AuditSvc     *audit.Service
}

func NewDeps() *Deps {
	db := dummydb.Open()
	validate, translator := NewValidator()
	d := &Deps{
		DB:          db,
		Validate:    validate,
		Translator:  translator,
		UserRepo:    dummydb.NewUserRepository(db),
		StudentRepo: dummydb.NewStudentRepository(db),
		GradeRepo:   dummydb.NewGradeRepository(db),
		AuditRepo:   dummydb.NewAuditRepository(db),
	}
	d.UserSvc = user.NewService(d.UserRepo)
	d.AuditSvc = audit.NewService(d.AuditRepo)
	d.StudentSvc = student.NewService(d.StudentRepo, d.AuditSvc, validate)
	d.GradebookSvc = gradebook.NewService(d.GradeRepo, d.StudentSvc, d.AuditSvc, grading.DefaultCurriculum(), validate)
	return d
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent enrolls a student. name is "paternal maternal, given".
func CreateStudent(t *testing.T, repo student.Repository, id, paternal, maternal, given string, grade int, section string, year int) student.Student {
	t.Helper()
	now := time.Now().UTC()
	st, err := repo.CreateStudent(context.Background(), student.Student{
		EnrollmentID:    id,
		PaternalSurname: paternal,
		MaternalSurname: maternal,
		GivenNames:      given,
		Grade:           grade,
		Section:         section,
		Year:            year,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}
