package model

import "time"

type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionUser is the identity a valid session token resolves to.
type SessionUser struct {
	UserID    int64
	Username  string
	Role      string
	ExpiresAt time.Time
}
