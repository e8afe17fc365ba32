package models

import "time"

// UserRole represents the review-chain roles of the folder workflow.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleFaculty     UserRole = "FACULTY"
	RoleCoordinator UserRole = "COORDINATOR"
	RoleAuditMember UserRole = "AUDIT_MEMBER"
	RoleConvener    UserRole = "CONVENER"
	RoleHOD         UserRole = "HOD"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Department   string     `db:"department" json:"department"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
