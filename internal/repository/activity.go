package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ActivityEntry is one audit record. Writes are fire-and-forget: callers log
// failures and move on.
type ActivityEntry struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Action      string    `db:"action"`
	SubjectType string    `db:"subject_type"`
	SubjectID   string    `db:"subject_id"`
	Detail      string    `db:"detail"`
	CreatedAt   time.Time `db:"created_at"`
}

type ActivityRepository interface {
	Record(entry *ActivityEntry) error
	BySubject(subjectType, subjectID string) ([]*ActivityEntry, error)
}

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Record(entry *ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `INSERT INTO activity_log (id, user_id, action, subject_type, subject_id, detail, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.SubjectType,
		entry.SubjectID,
		entry.Detail,
		entry.CreatedAt,
	)
	return err
}

func (r *activityRepository) BySubject(subjectType, subjectID string) ([]*ActivityEntry, error) {
	var entries []*ActivityEntry
	query := `SELECT * FROM activity_log WHERE subject_type = $1 AND subject_id = $2 ORDER BY created_at DESC`

	err := r.db.Select(&entries, query, subjectType, subjectID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
