package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	CalendarCount *int      `json:"calendar_count,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
