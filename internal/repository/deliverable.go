package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/model"
)

var (
	ErrDeliverableNotFound = errors.New("deliverable not found")
)

type DeliverableRepository interface {
	Create(deliverable *model.Deliverable) error
	ByID(id string) (*model.Deliverable, error)
	BySkill(skillID string) ([]*model.Deliverable, error)
}

type deliverableRepository struct {
	db *sqlx.DB
}

func NewDeliverableRepository(db *sqlx.DB) *deliverableRepository {
	return &deliverableRepository{db: db}
}

func (r *deliverableRepository) Create(deliverable *model.Deliverable) error {
	query := `INSERT INTO deliverables (id, skill_id, title, due_date, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(query,
		deliverable.ID,
		deliverable.SkillID,
		deliverable.Title,
		deliverable.DueDate,
		deliverable.CreatedAt,
	)
	return err
}

func (r *deliverableRepository) ByID(id string) (*model.Deliverable, error) {
	deliverable := &model.Deliverable{}
	query := `SELECT * FROM deliverables WHERE id = $1`

	err := r.db.Get(deliverable, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrDeliverableNotFound
	}

	return deliverable, err
}

func (r *deliverableRepository) BySkill(skillID string) ([]*model.Deliverable, error) {
	var deliverables []*model.Deliverable
	query := `SELECT * FROM deliverables WHERE skill_id = $1 ORDER BY created_at`

	err := r.db.Select(&deliverables, query, skillID)
	if err != nil {
		return nil, err
	}

	return deliverables, nil
}
