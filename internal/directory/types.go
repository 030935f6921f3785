package directory

import "time"

// Organization groups services under one owner.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DateOfBirth  string    `json:"date_of_birth,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service is a registered target that tickets and API keys can be scoped to.
type Service struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Assignment grants a user a role on a service. Disabled assignments stay on
// record but no longer authorize anything.
type Assignment struct {
	UserID    string    `json:"user_id"`
	ServiceID string    `json:"service_id"`
	Role      string    `json:"role"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}
