package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/libreta/backend/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry.ID = uuid.New().String()
	repo.db.rows = append(repo.db.rows, entry)
	return entry, nil
}

func (repo *auditRepository) QueryEntries(_ context.Context, filter *audit.QueryFilter) ([]audit.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]audit.Entry, 0, len(repo.db.rows))
	// newest first
	for i := len(repo.db.rows) - 1; i >= 0; i-- {
		e := repo.db.rows[i]
		if filter != nil {
			if filter.ActorID != "" && e.ActorID != filter.ActorID ||
				filter.Action != "" && e.Action != filter.Action ||
				filter.Area != "" && e.Area != filter.Area ||
				filter.Bimester != 0 && e.Bimester != filter.Bimester ||
				!filter.From.IsZero() && e.CreatedAt.Before(filter.From.UTC()) ||
				!filter.To.IsZero() && e.CreatedAt.After(filter.To.UTC()) {
				continue
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
