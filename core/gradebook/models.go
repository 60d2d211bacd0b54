package gradebook

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/student"
)

// SaveRequest is a bulk grade submission for one classroom, area and bimester.
type SaveRequest struct {
	Grade    int             `json:"grade" validate:"required,min=1,max=6"`
	Section  string          `json:"section" validate:"required,section"`
	Year     int             `json:"year" validate:"required,min=2000,max=2100"`
	Area     string          `json:"area" validate:"required,area"`
	Bimester int             `json:"bimester" validate:"required,bimester"`
	Entries  []grading.Entry `json:"entries" validate:"required,min=1"`
}

func (sr *SaveRequest) Validate(validate *validator.Validate) error {
	sr.Section = strings.ToUpper(core.CleanString(sr.Section))
	sr.Area = strings.ToUpper(core.CleanString(sr.Area))
	for i := range sr.Entries {
		sr.Entries[i].EnrollmentID = strings.TrimSpace(sr.Entries[i].EnrollmentID)
	}
	return validate.Struct(sr)
}

func (sr SaveRequest) Roster() student.RosterFilter {
	return student.RosterFilter{Grade: sr.Grade, Section: sr.Section, Year: sr.Year}
}

// Entry statuses
const (
	StatusSaved       = "saved"
	StatusReady       = "ready"
	StatusNeedsReview = "needs_review"
)

// EntryResult is the outcome of one submitted entry as returned to the client.
type EntryResult struct {
	Row          int                       `json:"row"`
	StudentName  string                    `json:"student_name"`
	EnrollmentID string                    `json:"enrollment_id,omitempty"`
	Status       string                    `json:"status"`
	Error        string                    `json:"error,omitempty"`
	Candidates   []grading.StudentIdentity `json:"candidates,omitempty"`
	Record       *grading.GradeRecord      `json:"record,omitempty"`
}

type SaveResult struct {
	Area     string          `json:"area"`
	Bimester int             `json:"bimester"`
	Summary  grading.Summary `json:"summary"`
	Message  string          `json:"message"`
	Entries  []EntryResult   `json:"entries"`
}

// RecordFilter narrows a grade record query. Zero fields are ignored. Grade, Section and Year
// scope the query to the students of that classroom.
type RecordFilter struct {
	Area     string `json:"area" query:"area"`
	Bimester int    `json:"bimester" query:"bimester"`
	Grade    int    `json:"grade" query:"grade"`
	Section  string `json:"section" query:"section"`
	Year     int    `json:"year" query:"year"`

	// EnrollmentIDs restricts the query when non-nil.
	EnrollmentIDs []string `json:"-" query:"-"`
}

func (rf *RecordFilter) Clean() {
	rf.Area = strings.ToUpper(core.CleanString(rf.Area))
	rf.Section = strings.ToUpper(core.CleanString(rf.Section))
}

func (rf RecordFilter) scoped() bool {
	return rf.Grade != 0 || rf.Section != "" || rf.Year != 0
}

type RecomputeResult struct {
	Affected int               `json:"affected"`
	Failed   int               `json:"failed"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// AnnualFilter selects the annual report of one classroom in one area.
type AnnualFilter struct {
	Grade   int    `json:"grade" query:"grade" validate:"required,min=1,max=6"`
	Section string `json:"section" query:"section" validate:"required,section"`
	Year    int    `json:"year" query:"year" validate:"required,min=2000,max=2100"`
	Area    string `json:"area" query:"area" validate:"required,area"`
}

func (af *AnnualFilter) Validate(validate *validator.Validate) error {
	af.Section = strings.ToUpper(core.CleanString(af.Section))
	af.Area = strings.ToUpper(core.CleanString(af.Area))
	return validate.Struct(af)
}

// AnnualRow holds the four bimestral overall grades of a student and the final grade,
// aggregated with the same rule as the bimestral one.
type AnnualRow struct {
	EnrollmentID string                           `json:"enrollment_id"`
	StudentName  string                           `json:"student_name"`
	Bimesters    [grading.Bimesters]grading.Score `json:"bimesters"`
	Final        grading.Score                    `json:"final"`
}
