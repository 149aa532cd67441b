package user

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"` // Not exposed in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsAdmin reports whether the user may read the admin dashboard
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
