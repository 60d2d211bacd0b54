// Package audit records who changed grades and rosters.
package audit

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/libreta/backend/core"
)

// Actions
const (
	ActionGradesSave      = "grades.save"
	ActionGradesRecompute = "grades.recompute"
	ActionStudentsImport  = "students.import"
)

// Actor is the authenticated user behind a change.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// System is the actor recorded for changes made from the admin CLI.
var System = Actor{ID: "system", Name: "admin cli"}

type Entry struct {
	ID          string    `json:"id" db:"id"`
	ActorID     string    `json:"actor_id" db:"actor_id"`
	ActorName   string    `json:"actor_name" db:"actor_name"`
	Action      string    `json:"action" db:"action"`
	Area        string    `json:"area,omitempty" db:"area"`
	Bimester    int       `json:"bimester,omitempty" db:"bimester"`
	Affected    int       `json:"affected" db:"affected"`
	NeedsReview int       `json:"needs_review" db:"needs_review"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// QueryFilter narrows an audit query. Zero fields are ignored.
type QueryFilter struct {
	ActorID  string    `query:"actor_id"`
	Action   string    `query:"action"`
	Area     string    `query:"area"`
	Bimester int       `query:"bimester"`
	From     time.Time `query:"-"` // parsed by the caller
	To       time.Time `query:"-"`
}

type Repository interface {
	CreateEntry(ctx context.Context, entry Entry) (Entry, error)
	// QueryEntries returns the matching entries, newest first.
	QueryEntries(ctx context.Context, filter *QueryFilter) ([]Entry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record writes one entry for a bulk change made by actor.
func (svc *Service) Record(ctx context.Context, actor Actor, entry Entry) (Entry, error) {
	entry.ActorID = actor.ID
	entry.ActorName = actor.Name
	entry.CreatedAt = core.NowFunc()
	e, err := svc.repo.CreateEntry(ctx, entry)
	if err != nil {
		return Entry{}, errors.Wrap(err, "creating audit entry")
	}
	return e, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}
