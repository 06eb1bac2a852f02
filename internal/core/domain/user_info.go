package domain

import "github.com/google/uuid"

// UserInfo is a lightweight projection for displaying user details.
type UserInfo struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Info returns the public projection of the user.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username}
}
