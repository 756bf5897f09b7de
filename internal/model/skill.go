package model

import (
	"time"
)

// Skill is a competition skill. SAID/SCMID are the assigned Skill Advisor
// and Skill Competition Manager; they are the only users allowed to manage
// the skill's deliverable evidence.
type Skill struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	SAID      *string   `db:"sa_id"`
	SCMID     *string   `db:"scm_id"`
	CreatedAt time.Time `db:"created_at"`
}

// ManagedBy reports whether user may manage this skill's deliverables.
func (s *Skill) ManagedBy(user *User) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if s.SAID != nil && *s.SAID == user.ID {
		return true
	}
	if s.SCMID != nil && *s.SCMID == user.ID {
		return true
	}
	return false
}
