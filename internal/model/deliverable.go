package model

import (
	"time"
)

// Deliverable is one tracked item a skill team must hand in. It owns at most
// one current evidence document.
type Deliverable struct {
	ID        string     `db:"id"`
	SkillID   string     `db:"skill_id"`
	Title     string     `db:"title"`
	DueDate   *time.Time `db:"due_date"`
	CreatedAt time.Time  `db:"created_at"`

	// Joined, not a column
	Evidence *EvidenceDocument `db:"-"`
}
