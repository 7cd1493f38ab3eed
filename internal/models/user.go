package models

import (
	"strings"
	"time"
)

// User is the authenticated principal behind a request
type User struct {
	ID        string `json:"user_id"`
	Email     string `json:"user_email,omitempty"`
	FirstName string `json:"user_first_name,omitempty"`
	LastName  string `json:"user_last_name,omitempty"`
	Username  string `json:"user_username,omitempty"`
}

// DisplayName returns the best human readable name for the user
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// UserLogin is one recorded sign-in
type UserLogin struct {
	ID        int64     `json:"login_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email_id,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Username  string    `json:"username,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty"`
	LoginTime time.Time `json:"login_time"`
	CreatedAt time.Time `json:"created_at"`
}
