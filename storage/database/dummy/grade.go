package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/libreta/backend/core/gradebook"
	"github.com/libreta/backend/core/grading"
)

type gradeRepository struct {
	db *gradeTable
}

var _ gradebook.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) gradebook.Repository {
	return &gradeRepository{db: db.grade}
}

func (repo *gradeRepository) UpsertRecords(_ context.Context, records []grading.GradeRecord) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i := range records {
		rec := &records[i]
		key := gradeKey{enrollmentID: rec.EnrollmentID, area: rec.Area, bimester: rec.Bimester}
		if prev, ok := repo.db.table[key]; ok {
			rec.ID = prev.ID
			rec.CreatedAt = prev.CreatedAt
		} else {
			rec.ID = uuid.New().String()
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = rec.UpdatedAt
			}
		}
		stored := *rec
		repo.db.table[key] = &stored
	}
	return len(records), nil
}

func (repo *gradeRepository) QueryRecords(_ context.Context, filter *gradebook.RecordFilter) ([]grading.GradeRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids map[string]bool
	if filter != nil && filter.EnrollmentIDs != nil {
		ids = make(map[string]bool, len(filter.EnrollmentIDs))
		for _, id := range filter.EnrollmentIDs {
			ids[id] = true
		}
	}

	records := make([]grading.GradeRecord, 0)
	for key, rec := range repo.db.table {
		if filter != nil {
			if filter.Area != "" && key.area != filter.Area {
				continue
			}
			if filter.Bimester != 0 && key.bimester != filter.Bimester {
				continue
			}
			if ids != nil && !ids[key.enrollmentID] {
				continue
			}
		}
		records = append(records, *rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Area != b.Area {
			return a.Area < b.Area
		}
		if a.Bimester != b.Bimester {
			return a.Bimester < b.Bimester
		}
		return a.EnrollmentID < b.EnrollmentID
	})
	return records, nil
}
