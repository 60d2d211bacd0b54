// Package dummydb keeps every table in memory. It backs the TEST environment and the
// `memory` storage mode.
package dummydb

import (
	"sync"
	"time"

	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/grading"
	"github.com/libreta/backend/core/student"
	"github.com/libreta/backend/core/user"
)

type (
	DB struct {
		user    *userTable
		student *studentTable
		grade   *gradeTable
		audit   *auditTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	gradeKey struct {
		enrollmentID string
		area         string
		bimester     int
	}

	gradeTable struct {
		sync.RWMutex
		table map[gradeKey]*grading.GradeRecord
	}

	auditTable struct {
		sync.RWMutex
		rows []audit.Entry
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		student: &studentTable{table: make(map[string]*student.Student)},
		grade:   &gradeTable{table: make(map[gradeKey]*grading.GradeRecord)},
		audit:   &auditTable{},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.student.Lock()
	db.student.table = make(map[string]*student.Student)
	db.student.Unlock()

	db.grade.Lock()
	db.grade.table = make(map[gradeKey]*grading.GradeRecord)
	db.grade.Unlock()

	db.audit.Lock()
	db.audit.rows = nil
	db.audit.Unlock()
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// false sorts before true, as in postgres.
func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
