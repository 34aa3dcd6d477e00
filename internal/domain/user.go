package domain

import "strings"

// UserStatusApproved is the only status eligible for login.
const UserStatusApproved = "approved"

// User is an authenticated member of the sales staff.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role"`
}

// DisplayName joins first and last name, falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserRecord is a stored user row including its credential.
type UserRecord struct {
	User
	PasswordHash string
	Status       string
}
