package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/student"
)

const studentColumns = "enrollment_id, paternal_surname, maternal_surname, given_names, grade, section, year, created_at, updated_at"

var studentOrderingColumns = map[string]bool{
	"enrollment_id": true, "paternal_surname": true, "maternal_surname": true, "given_names": true,
	"grade": true, "section": true, "year": true, "created_at": true,
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.CreatedAt, st.UpdatedAt = st.CreatedAt.UTC(), st.UpdatedAt.UTC()
	q := `INSERT INTO students (` + studentColumns + `)
		VALUES (:enrollment_id, :paternal_surname, :maternal_surname, :given_names, :grade, :section, :year, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, st); err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrEnrollmentExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, enrollmentID string) (student.Student, error) {
	var st student.Student
	err := repo.db.GetContext(ctx, &st, "SELECT "+studentColumns+" FROM students WHERE enrollment_id = $1", enrollmentID)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	}
	if err != nil {
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return st, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var where conditions
	if filter != nil {
		if filter.Grade != 0 {
			where.add("grade = ?", filter.Grade)
		}
		if filter.Section != "" {
			where.add("section = ?", filter.Section)
		}
		if filter.Year != 0 {
			where.add("year = ?", filter.Year)
		}
		if filter.Search != "" {
			val := likePattern(filter.Search)
			where.add(displayNameExpr+" ILIKE ? OR enrollment_id LIKE ?", val, val)
		}
	}

	q := "SELECT " + studentColumns + " FROM students" + where.String() + orderBy(ordering, studentOrderingColumns, "enrollment_id ASC")
	students := make([]student.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) DeleteStudents(ctx context.Context, enrollmentIDs ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE enrollment_id = ANY($1)", pq.Array(enrollmentIDs))
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return int(n), nil
}
