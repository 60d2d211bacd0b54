package student

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/grading"
)

var (
	// errors
	ErrNotFound         = errors.New("student not found")
	ErrEnrollmentExists = errors.New("a student with this enrollment id already exists")
)

type (
	Repository interface {
		// CreateStudent returns ErrEnrollmentExists when the enrollment id is taken.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudent(ctx context.Context, enrollmentID string) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		DeleteStudents(ctx context.Context, enrollmentIDs ...string) (int, error)
	}

	Service struct {
		repo     Repository
		audit    *audit.Service
		validate *validator.Validate
	}
)

// rosterOrdering is the report-card order.
var rosterOrdering = []core.DBOrdering{
	{Field: "paternal_surname", Ascending: true},
	{Field: "maternal_surname", Ascending: true},
	{Field: "given_names", Ascending: true},
}

func NewService(repo Repository, auditSvc *audit.Service, validate *validator.Validate) *Service {
	return &Service{repo: repo, audit: auditSvc, validate: validate}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	st, err := svc.repo.CreateStudent(ctx, newStudent(ns))
	if err == ErrEnrollmentExists {
		return Student{}, core.NewValidationError(err, core.FieldError{Field: "enrollment_id", Error: err.Error()})
	}
	return st, err
}

func (svc *Service) Get(ctx context.Context, enrollmentID string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(enrollmentID))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if len(ordering) == 0 {
		ordering = rosterOrdering
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

// Roster returns the students of one classroom in report-card order.
func (svc *Service) Roster(ctx context.Context, filter RosterFilter) ([]Student, error) {
	if err := filter.Validate(svc.validate); err != nil {
		return nil, err
	}
	students, err := svc.repo.QueryStudents(ctx, filter.Query(), rosterOrdering)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying roster")
	}
	return students, nil
}

// Index builds a fresh identity index from the current roster. Callers rebuild it per batch.
func (svc *Service) Index(ctx context.Context, filter RosterFilter) (*grading.Index, error) {
	students, err := svc.Roster(ctx, filter)
	if err != nil {
		return nil, err
	}
	identities := make([]grading.StudentIdentity, 0, len(students))
	for _, st := range students {
		identities = append(identities, st.Identity())
	}
	return grading.BuildIndex(identities), nil
}

// Import enrolls every valid row. Invalid rows are reported by row number and already enrolled
// ids are skipped; neither stops the import.
func (svc *Service) Import(ctx context.Context, actor audit.Actor, rows []NewStudent) (ImportResult, error) {
	res := ImportResult{Errors: make(map[int]string)}
	for i := range rows {
		row := i + 1
		if err := rows[i].Validate(svc.validate); err != nil {
			res.Errors[row] = describeValidation(err)
			continue
		}
		_, err := svc.repo.CreateStudent(ctx, newStudent(rows[i]))
		switch err {
		case nil:
			res.Created++
		case ErrEnrollmentExists:
			res.Skipped++
		default:
			return res, pkgerrors.Wrapf(err, "importing row %d", row)
		}
	}

	if _, err := svc.audit.Record(ctx, actor, audit.Entry{
		Action:      audit.ActionStudentsImport,
		Affected:    res.Created,
		NeedsReview: len(res.Errors),
	}); err != nil {
		return res, err
	}
	return res, nil
}

func (svc *Service) Delete(ctx context.Context, enrollmentIDs ...string) (int, error) {
	return svc.repo.DeleteStudents(ctx, enrollmentIDs...)
}

func newStudent(ns NewStudent) Student {
	now := core.NowFunc()
	return Student{
		EnrollmentID:    ns.EnrollmentID,
		PaternalSurname: ns.PaternalSurname,
		MaternalSurname: ns.MaternalSurname,
		GivenNames:      ns.GivenNames,
		Grade:           ns.Grade,
		Section:         ns.Section,
		Year:            ns.Year,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func describeValidation(err error) string {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		return fmt.Sprintf("%s: failed on %q", vErrs[0].Field(), vErrs[0].Tag())
	}
	return err.Error()
}
