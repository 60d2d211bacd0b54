package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/libreta/backend/core/gradebook"
	"github.com/libreta/backend/core/grading"
)

const gradeColumns = `id, enrollment_id, student_name, area, bimester, slots,
	average_1, average_2, average_3, average_4, overall, updated_by, created_at, updated_at`

// gradeRow maps the grade_records table. Absent averages are stored as NULL.
type gradeRow struct {
	ID           string         `db:"id"`
	EnrollmentID string         `db:"enrollment_id"`
	StudentName  string         `db:"student_name"`
	Area         string         `db:"area"`
	Bimester     int            `db:"bimester"`
	Slots        types.JSONText `db:"slots"`
	Average1     null.String    `db:"average_1"`
	Average2     null.String    `db:"average_2"`
	Average3     null.String    `db:"average_3"`
	Average4     null.String    `db:"average_4"`
	Overall      null.String    `db:"overall"`
	UpdatedBy    null.String    `db:"updated_by"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func nullScore(s grading.Score) null.String {
	return null.NewString(s.String(), s != grading.Absent)
}

func scoreFromNull(ns null.String) (grading.Score, error) {
	if !ns.Valid {
		return grading.Absent, nil
	}
	return grading.ParseScore(ns.String)
}

func toGradeRow(rec grading.GradeRecord) (gradeRow, error) {
	slots, err := json.Marshal(rec.Slots)
	if err != nil {
		return gradeRow{}, errors.Wrap(err, "encoding slots")
	}
	return gradeRow{
		ID:           rec.ID,
		EnrollmentID: rec.EnrollmentID,
		StudentName:  rec.StudentName,
		Area:         rec.Area,
		Bimester:     rec.Bimester,
		Slots:        slots,
		Average1:     nullScore(rec.Averages[0]),
		Average2:     nullScore(rec.Averages[1]),
		Average3:     nullScore(rec.Averages[2]),
		Average4:     nullScore(rec.Averages[3]),
		Overall:      nullScore(rec.Overall),
		UpdatedBy:    null.NewString(rec.UpdatedBy, rec.UpdatedBy != ""),
		CreatedAt:    rec.CreatedAt.UTC(),
		UpdatedAt:    rec.UpdatedAt.UTC(),
	}, nil
}

func (row gradeRow) record() (grading.GradeRecord, error) {
	rec := grading.GradeRecord{
		ID:           row.ID,
		EnrollmentID: row.EnrollmentID,
		StudentName:  row.StudentName,
		Area:         row.Area,
		Bimester:     row.Bimester,
		UpdatedBy:    row.UpdatedBy.String,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if err := row.Slots.Unmarshal(&rec.Slots); err != nil {
		return grading.GradeRecord{}, errors.Wrapf(err, "decoding slots of record %s", row.ID)
	}
	var err error
	for i, ns := range []null.String{row.Average1, row.Average2, row.Average3, row.Average4} {
		if rec.Averages[i], err = scoreFromNull(ns); err != nil {
			return grading.GradeRecord{}, errors.Wrapf(err, "decoding average of record %s", row.ID)
		}
	}
	if rec.Overall, err = scoreFromNull(row.Overall); err != nil {
		return grading.GradeRecord{}, errors.Wrapf(err, "decoding overall of record %s", row.ID)
	}
	return rec, nil
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ gradebook.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) gradebook.Repository {
	return &gradeRepository{db: db}
}

// UpsertRecords writes all records in one transaction. A record replaces the one stored for the
// same student, area and bimester, keeping its id and creation time, which are written back
// into records.
func (repo *gradeRepository) UpsertRecords(ctx context.Context, records []grading.GradeRecord) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO grade_records (` + gradeColumns + `)
		VALUES (:id, :enrollment_id, :student_name, :area, :bimester, :slots,
			:average_1, :average_2, :average_3, :average_4, :overall, :updated_by, :created_at, :updated_at)
		ON CONFLICT (enrollment_id, area, bimester) DO UPDATE SET
			student_name = EXCLUDED.student_name,
			slots = EXCLUDED.slots,
			average_1 = EXCLUDED.average_1,
			average_2 = EXCLUDED.average_2,
			average_3 = EXCLUDED.average_3,
			average_4 = EXCLUDED.average_4,
			overall = EXCLUDED.overall,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	stmt, err := tx.PrepareNamedContext(ctx, q)
	if err != nil {
		return 0, errors.Wrap(err, "preparing upsert")
	}
	defer func() { _ = stmt.Close() }()

	for i := range records {
		rec := &records[i]
		rec.ID = uuid.New().String()
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = rec.UpdatedAt
		}
		row, err := toGradeRow(*rec)
		if err != nil {
			return 0, err
		}
		if err := stmt.QueryRowxContext(ctx, row).Scan(&rec.ID, &rec.CreatedAt); err != nil {
			return 0, errors.Wrapf(err, "upserting record of %s", rec.EnrollmentID)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing grade records")
	}
	return len(records), nil
}

func (repo *gradeRepository) QueryRecords(ctx context.Context, filter *gradebook.RecordFilter) ([]grading.GradeRecord, error) {
	var where conditions
	if filter != nil {
		if filter.Area != "" {
			where.add("area = ?", filter.Area)
		}
		if filter.Bimester != 0 {
			where.add("bimester = ?", filter.Bimester)
		}
		if filter.EnrollmentIDs != nil {
			where.add("enrollment_id = ANY(?)", pq.Array(filter.EnrollmentIDs))
		}
	}

	q := "SELECT " + gradeColumns + " FROM grade_records" + where.String() + " ORDER BY area, bimester, enrollment_id"
	var rows []gradeRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}
	records := make([]grading.GradeRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
