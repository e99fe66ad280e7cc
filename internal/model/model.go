package model

import "time"

const (
	RoleAdmin   = "Admin"
	RoleStudent = "Student"
)

// Identity is a login credential: one row per account, any role.
type Identity struct {
	ID         string
	Name       string
	Email      string
	SecretHash string
	Role       string
	CreatedAt  time.Time
}

// Profile is the student record owned by exactly one Student identity.
// Seq is the store's insertion-order key and the directory sort key;
// EnrollmentDate is an ISO-8601 calendar date (YYYY-MM-DD).
type Profile struct {
	ID             string
	IdentityID     string
	Seq            int64
	Name           string
	Email          string
	Course         string
	EnrollmentDate string
}
