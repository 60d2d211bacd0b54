package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/libreta/backend/core/audit"
)

const auditColumns = "id, actor_id, actor_name, action, area, bimester, affected, needs_review, created_at"

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = entry.CreatedAt.UTC()
	q := `INSERT INTO audit_entries (` + auditColumns + `)
		VALUES (:id, :actor_id, :actor_name, :action, :area, :bimester, :affected, :needs_review, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, entry); err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return entry, nil
}

func (repo *auditRepository) QueryEntries(ctx context.Context, filter *audit.QueryFilter) ([]audit.Entry, error) {
	var where conditions
	if filter != nil {
		if filter.ActorID != "" {
			where.add("actor_id = ?", filter.ActorID)
		}
		if filter.Action != "" {
			where.add("action = ?", filter.Action)
		}
		if filter.Area != "" {
			where.add("area = ?", filter.Area)
		}
		if filter.Bimester != 0 {
			where.add("bimester = ?", filter.Bimester)
		}
		if !filter.From.IsZero() {
			where.add("created_at >= ?", filter.From.UTC())
		}
		if !filter.To.IsZero() {
			where.add("created_at <= ?", filter.To.UTC())
		}
	}

	q := "SELECT " + auditColumns + " FROM audit_entries" + where.String() + " ORDER BY created_at DESC"
	entries := make([]audit.Entry, 0)
	if err := repo.db.SelectContext(ctx, &entries, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	return entries, nil
}
