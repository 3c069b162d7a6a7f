// Package domain contains entities without logic, just meta-data.
package domain

type UserID string

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Identity is the authenticated principal bound to a connection.
// Resolved once at connect time and immutable afterwards.
type Identity struct {
	ID   UserID `json:"id"`
	Role Role   `json:"role"`
}

// Profile is the public view of a user attached to outgoing messages.
type Profile struct {
	ID     UserID `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}
