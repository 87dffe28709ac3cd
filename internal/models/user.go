package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleEditor  UserRole = "EDITOR"
)

// User represents an application user stored in the users table. The user
// directory itself is owned by the excluded auth subsystem; this service only
// reads it for login, role checks and assignment snapshots.
type User struct {
	ID           string     `db:"id" json:"id"`
	Tpin         string     `db:"tpin" json:"tpin"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CanTeach reports whether the user may be assigned a class session.
// Admins can teach as well.
func (u *User) CanTeach() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}
