package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleTA         Role = "TA"
)

var Roles = []Role{RoleStudent, RoleInstructor, RoleTA}

// ParseRole accepts a role name in any letter case and returns its canonical form.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, true
		}
	}
	return "", false
}

// Membership links a user to a course under a role. There is at most one
// membership per (UserID, CourseID).
type Membership struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
