package gradebook

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/student"
)

type (
	Repository interface {
		// UpsertRecords inserts or replaces records keyed by (enrollment id, area, bimester)
		// and returns how many rows were written. The stored id and creation time are written
		// back into records.
		UpsertRecords(ctx context.Context, records []grading.GradeRecord) (int, error)
		// QueryRecords returns the matching records ordered by area, bimester and enrollment id.
		QueryRecords(ctx context.Context, filter *RecordFilter) ([]grading.GradeRecord, error)
	}

	Service struct {
		repo       Repository
		students   *student.Service
		audit      *audit.Service
		curriculum *grading.Curriculum
		validate   *validator.Validate
	}
)

func NewService(
	repo Repository,
	students *student.Service,
	auditSvc *audit.Service,
	curriculum *grading.Curriculum,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:       repo,
		students:   students,
		audit:      auditSvc,
		curriculum: curriculum,
		validate:   validate,
	}
}

// Preview consolidates a submission without persisting anything.
func (svc *Service) Preview(ctx context.Context, req SaveRequest) (SaveResult, error) {
	batch, err := svc.consolidate(ctx, req)
	if err != nil {
		return SaveResult{}, err
	}
	return newSaveResult(batch, StatusReady), nil
}

// Save consolidates a submission, upserts the records that are ready and writes one audit
// entry. Entries needing review are returned with their error and left unsaved.
func (svc *Service) Save(ctx context.Context, actor audit.Actor, req SaveRequest) (SaveResult, error) {
	batch, err := svc.consolidate(ctx, req)
	if err != nil {
		return SaveResult{}, err
	}

	now := core.NowFunc()
	for _, o := range batch.Outcomes {
		if o.Record != nil {
			o.Record.UpdatedBy = actor.ID
			o.Record.UpdatedAt = now
		}
	}

	affected := 0
	if ready := batch.Ready(); len(ready) > 0 {
		if affected, err = svc.repo.UpsertRecords(ctx, ready); err != nil {
			return SaveResult{}, pkgerrors.Wrap(err, "saving grades")
		}
		stored := make(map[string]grading.GradeRecord, len(ready))
		for _, rec := range ready {
			stored[rec.EnrollmentID] = rec
		}
		for _, o := range batch.Outcomes {
			if o.Record != nil {
				o.Record.ID = stored[o.Record.EnrollmentID].ID
				o.Record.CreatedAt = stored[o.Record.EnrollmentID].CreatedAt
			}
		}
	}

	res := newSaveResult(batch, StatusSaved)
	if _, err := svc.audit.Record(ctx, actor, audit.Entry{
		Action:      audit.ActionGradesSave,
		Area:        batch.Area,
		Bimester:    batch.Bimester,
		Affected:    affected,
		NeedsReview: res.Summary.NeedsReview,
	}); err != nil {
		return res, err
	}
	return res, nil
}

func (svc *Service) consolidate(ctx context.Context, req SaveRequest) (grading.Batch, error) {
	if err := req.Validate(svc.validate); err != nil {
		return grading.Batch{}, err
	}
	area, err := svc.curriculum.Area(req.Area)
	if err != nil {
		return grading.Batch{}, core.NewValidationError(err, core.FieldError{Field: "area", Error: err.Error()})
	}
	idx, err := svc.students.Index(ctx, req.Roster())
	if err != nil {
		return grading.Batch{}, pkgerrors.Wrap(err, "building roster index")
	}
	batch, err := grading.Consolidate(idx, area, req.Bimester, req.Entries)
	if err != nil {
		return grading.Batch{}, core.NewValidationError(err, core.FieldError{Field: "bimester", Error: err.Error()})
	}
	return batch, nil
}

func newSaveResult(batch grading.Batch, okStatus string) SaveResult {
	sum := batch.Summary()
	res := SaveResult{
		Area:     batch.Area,
		Bimester: batch.Bimester,
		Summary:  sum,
		Message:  sum.String(),
		Entries:  make([]EntryResult, 0, len(batch.Outcomes)),
	}
	for _, o := range batch.Outcomes {
		er := EntryResult{
			Row:          o.Row,
			StudentName:  o.Entry.StudentName,
			EnrollmentID: o.Student.EnrollmentID,
			Status:       okStatus,
			Record:       o.Record,
		}
		if o.NeedsReview() {
			er.Status = StatusNeedsReview
			er.Error = o.Err.Error()
			er.Candidates = o.Candidates()
			er.EnrollmentID = o.Entry.EnrollmentID
		}
		res.Entries = append(res.Entries, er)
	}
	return res
}

// Query returns stored records. A classroom scope is resolved to its roster first.
func (svc *Service) Query(ctx context.Context, filter *RecordFilter) ([]grading.GradeRecord, error) {
	if filter == nil {
		filter = new(RecordFilter)
	}
	filter.Clean()
	if filter.scoped() {
		students, err := svc.students.Query(ctx, &student.QueryFilter{Grade: filter.Grade, Section: filter.Section, Year: filter.Year}, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "querying students")
		}
		if len(students) == 0 {
			return []grading.GradeRecord{}, nil
		}
		filter.EnrollmentIDs = make([]string, 0, len(students))
		for _, st := range students {
			filter.EnrollmentIDs = append(filter.EnrollmentIDs, st.EnrollmentID)
		}
	}
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying grade records")
	}
	return records, nil
}

// Recompute re-derives averages and overall grades of stored records from their slots with the
// current curriculum and saves them. Records that no longer fit their area are reported.
func (svc *Service) Recompute(ctx context.Context, actor audit.Actor, filter *RecordFilter) (RecomputeResult, error) {
	records, err := svc.Query(ctx, filter)
	if err != nil {
		return RecomputeResult{}, err
	}

	res := RecomputeResult{Errors: make(map[string]string)}
	now := core.NowFunc()
	updated := make([]grading.GradeRecord, 0, len(records))
	for _, rec := range records {
		key := fmt.Sprintf("%s/%s/%d", rec.EnrollmentID, rec.Area, rec.Bimester)
		area, err := svc.curriculum.Area(rec.Area)
		if err == nil {
			err = rec.ComputeDerived(area)
		}
		if err != nil {
			res.Failed++
			res.Errors[key] = err.Error()
			continue
		}
		rec.UpdatedBy = actor.ID
		rec.UpdatedAt = now
		updated = append(updated, rec)
	}

	if len(updated) > 0 {
		if res.Affected, err = svc.repo.UpsertRecords(ctx, updated); err != nil {
			return RecomputeResult{}, pkgerrors.Wrap(err, "saving recomputed grades")
		}
	}

	entry := audit.Entry{Action: audit.ActionGradesRecompute, Affected: res.Affected, NeedsReview: res.Failed}
	if filter != nil {
		entry.Area, entry.Bimester = filter.Area, filter.Bimester
	}
	if _, err := svc.audit.Record(ctx, actor, entry); err != nil {
		return res, err
	}
	return res, nil
}

// Annual loads the four bimesters of a classroom concurrently and aggregates each student's
// bimestral overall grades into a final grade. Students without records get absent grades.
func (svc *Service) Annual(ctx context.Context, filter AnnualFilter) ([]AnnualRow, error) {
	if err := filter.Validate(svc.validate); err != nil {
		return nil, err
	}
	roster, err := svc.students.Roster(ctx, student.RosterFilter{Grade: filter.Grade, Section: filter.Section, Year: filter.Year})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading roster")
	}
	if len(roster) == 0 {
		return []AnnualRow{}, nil
	}

	ids := make([]string, 0, len(roster))
	for _, st := range roster {
		ids = append(ids, st.EnrollmentID)
	}

	var perBimester [grading.Bimesters][]grading.GradeRecord
	g, gctx := errgroup.WithContext(ctx)
	for b := 1; b <= grading.Bimesters; b++ {
		b := b
		g.Go(func() error {
			records, err := svc.repo.QueryRecords(gctx, &RecordFilter{Area: filter.Area, Bimester: b, EnrollmentIDs: ids})
			if err != nil {
				return pkgerrors.Wrapf(err, "loading bimester %d", b)
			}
			perBimester[b-1] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]AnnualRow, len(roster))
	pos := make(map[string]int, len(roster))
	for i, st := range roster {
		rows[i] = AnnualRow{EnrollmentID: st.EnrollmentID, StudentName: st.DisplayName()}
		pos[st.EnrollmentID] = i
	}
	for b, records := range perBimester {
		for _, rec := range records {
			if i, ok := pos[rec.EnrollmentID]; ok {
				rows[i].Bimesters[b] = rec.Overall
			}
		}
	}
	for i := range rows {
		final, err := grading.OverallGrade(rows[i].Bimesters[:]...)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "aggregating %s", rows[i].EnrollmentID)
		}
		rows[i].Final = final
	}
	return rows, nil
}
