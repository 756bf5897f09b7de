package model

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleSA    = "sa"  // Skill Advisor
	RoleSCM   = "scm" // Skill Competition Manager
)

type User struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
