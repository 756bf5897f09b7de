package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/model"
)

var (
	ErrSkillNotFound = errors.New("skill not found")
)

type SkillRepository interface {
	Create(skill *model.Skill) error
	ByID(id string) (*model.Skill, error)
}

type skillRepository struct {
	db *sqlx.DB
}

func NewSkillRepository(db *sqlx.DB) *skillRepository {
	return &skillRepository{db: db}
}

func (r *skillRepository) Create(skill *model.Skill) error {
	query := `INSERT INTO skills (id, name, sa_id, scm_id, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(query, skill.ID, skill.Name, skill.SAID, skill.SCMID, skill.CreatedAt)
	return err
}

func (r *skillRepository) ByID(id string) (*model.Skill, error) {
	skill := &model.Skill{}
	query := `SELECT * FROM skills WHERE id = $1`

	err := r.db.Get(skill, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrSkillNotFound
	}

	return skill, err
}
