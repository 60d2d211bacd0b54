package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/grading"
)

// Student is an enrolled student. EnrollmentID (the DNI) is the authoritative key.
type Student struct {
	EnrollmentID    string    `json:"enrollment_id" db:"enrollment_id"`
	PaternalSurname string    `json:"paternal_surname" db:"paternal_surname"`
	MaternalSurname string    `json:"maternal_surname" db:"maternal_surname"`
	GivenNames      string    `json:"given_names" db:"given_names"`
	Grade           int       `json:"grade" db:"grade"`
	Section         string    `json:"section" db:"section"`
	Year            int       `json:"year" db:"year"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// DisplayName renders "paternal maternal, given names", the form names are typed in.
func (s Student) DisplayName() string {
	surnames := strings.TrimSpace(s.PaternalSurname + " " + s.MaternalSurname)
	if s.GivenNames == "" {
		return surnames
	}
	return surnames + ", " + s.GivenNames
}

func (s Student) Identity() grading.StudentIdentity {
	return grading.StudentIdentity{EnrollmentID: s.EnrollmentID, DisplayName: s.DisplayName()}
}

// NewStudent contains information needed to enroll a student.
type NewStudent struct {
	EnrollmentID    string `json:"enrollment_id" validate:"required,dni"`
	PaternalSurname string `json:"paternal_surname" validate:"required,notblank"`
	MaternalSurname string `json:"maternal_surname"`
	GivenNames      string `json:"given_names" validate:"required,notblank"`
	Grade           int    `json:"grade" validate:"required,min=1,max=6"`
	Section         string `json:"section" validate:"required,section"`
	Year            int    `json:"year" validate:"required,min=2000,max=2100"`
}

func (ns *NewStudent) Clean() {
	ns.EnrollmentID = core.CleanString(ns.EnrollmentID)
	ns.PaternalSurname = core.CleanString(ns.PaternalSurname)
	ns.MaternalSurname = core.CleanString(ns.MaternalSurname)
	ns.GivenNames = core.CleanString(ns.GivenNames)
	ns.Section = strings.ToUpper(core.CleanString(ns.Section))
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

// QueryFilter narrows a student query. Zero fields are ignored.
// Search does a case-insensitive match on surnames, given names or enrollment id.
type QueryFilter struct {
	Grade   int    `query:"grade"`
	Section string `query:"section"`
	Year    int    `query:"year"`
	Search  string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Section = strings.ToUpper(core.CleanString(qf.Section))
}

// RosterFilter scopes a roster snapshot to one classroom of one school year.
type RosterFilter struct {
	Grade   int    `json:"grade" query:"grade" validate:"required,min=1,max=6"`
	Section string `json:"section" query:"section" validate:"required,section"`
	Year    int    `json:"year" query:"year" validate:"required,min=2000,max=2100"`
}

func (rf *RosterFilter) Validate(validate *validator.Validate) error {
	rf.Section = strings.ToUpper(core.CleanString(rf.Section))
	return validate.Struct(rf)
}

func (rf RosterFilter) Query() *QueryFilter {
	return &QueryFilter{Grade: rf.Grade, Section: rf.Section, Year: rf.Year}
}

// ImportResult reports a bulk roster import. Row numbers are 1-based.
type ImportResult struct {
	Created int            `json:"created"`
	Skipped int            `json:"skipped"`
	Errors  map[int]string `json:"errors,omitempty"`
}
