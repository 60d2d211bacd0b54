package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, exists := repo.db.table[st.EnrollmentID]; exists {
		return student.Student{}, student.ErrEnrollmentExists
	}
	repo.db.table[st.EnrollmentID] = &st
	return st, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, enrollmentID string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.table[enrollmentID]; ok {
		return *st, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.table))
	for _, st := range repo.db.table {
		if filter != nil && !matchStudent(*st, filter) {
			continue
		}
		students = append(students, *st)
	}

	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "enrollment_id":
				cmp = strings.Compare(a.EnrollmentID, b.EnrollmentID)
			case "paternal_surname":
				cmp = strings.Compare(a.PaternalSurname, b.PaternalSurname)
			case "maternal_surname":
				cmp = strings.Compare(a.MaternalSurname, b.MaternalSurname)
			case "given_names":
				cmp = strings.Compare(a.GivenNames, b.GivenNames)
			case "grade":
				cmp = compareInts(a.Grade, b.Grade)
			case "section":
				cmp = strings.Compare(a.Section, b.Section)
			case "year":
				cmp = compareInts(a.Year, b.Year)
			case "created_at":
				cmp = compareTimes(a.CreatedAt, b.CreatedAt)
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return a.EnrollmentID < b.EnrollmentID
	})
	return students, nil
}

func matchStudent(st student.Student, filter *student.QueryFilter) bool {
	if filter.Grade != 0 && st.Grade != filter.Grade {
		return false
	}
	if filter.Section != "" && st.Section != filter.Section {
		return false
	}
	if filter.Year != 0 && st.Year != filter.Year {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(st.DisplayName()), search) &&
			!strings.Contains(st.EnrollmentID, search) {
			return false
		}
	}
	return true
}

func (repo *studentRepository) DeleteStudents(_ context.Context, enrollmentIDs ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range enrollmentIDs {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}
