// Package storage picks the repositories backing the services from the configuration.
package storage

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/libreta/backend/core"
	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/gradebook"
	"github.com/libreta/backend/core/student"
	"github.com/libreta/backend/core/user"
	"github.com/libreta/backend/storage/database"
	dummydb "github.com/libreta/backend/storage/database/dummy"
	sqlxrepos "github.com/libreta/backend/storage/database/sqlx"
)

type Repositories struct {
	// DB is nil with in-memory storage.
	DB *sqlx.DB

	User    user.Repository
	Student student.Repository
	Grade   gradebook.Repository
	Audit   audit.Repository
}

func (r *Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Open returns in-memory repositories for the memory storage and postgres ones otherwise.
// migrate creates the database when missing and applies pending migrations first.
func Open(conf *core.Config, migrate bool) (*Repositories, error) {
	if conf.Storage == core.StorageMemory {
		db := dummydb.Open()
		return &Repositories{
			User:    dummydb.NewUserRepository(db),
			Student: dummydb.NewStudentRepository(db),
			Grade:   dummydb.NewGradeRepository(db),
			Audit:   dummydb.NewAuditRepository(db),
		}, nil
	}

	if migrate {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "migrating")
		}
	}
	return &Repositories{
		DB:      db,
		User:    sqlxrepos.NewUserRepository(db),
		Student: sqlxrepos.NewStudentRepository(db),
		Grade:   sqlxrepos.NewGradeRepository(db),
		Audit:   sqlxrepos.NewAuditRepository(db),
	}, nil
}
