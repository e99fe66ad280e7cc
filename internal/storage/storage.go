// Package storage defines the persistence contract shared by the HTTP
// layer and the concrete backends. Operations that touch both an
// identity and its profile are single methods so each backend can make
// them atomic.
package storage

import (
	"context"
	"errors"

	"studentrecords/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// ProfileUpdate carries the mutable profile fields for an admin edit.
type ProfileUpdate struct {
	Name           string
	Email          string
	Course         string
	EnrollmentDate string
}

// SelfUpdate carries the fields a signed-in user may edit. Name and
// Email apply to both the identity and the profile; Course is
// profile-only.
type SelfUpdate struct {
	Name   string
	Email  string
	Course string
}

type Store interface {
	// CreateIdentity inserts a credential with no profile (admin
	// accounts). Fails with ErrDuplicateEmail on a taken email.
	CreateIdentity(ctx context.Context, identity model.Identity) error

	// CreateStudent inserts the identity and its profile atomically
	// and returns the profile with its insertion-order key assigned.
	// ErrDuplicateEmail leaves no partial state behind.
	CreateStudent(ctx context.Context, identity model.Identity, profile model.Profile) (model.Profile, error)

	GetIdentityByEmail(ctx context.Context, email string) (model.Identity, error)
	GetIdentityByID(ctx context.Context, id string) (model.Identity, error)
	GetProfileByID(ctx context.Context, id string) (model.Profile, error)
	GetProfileByIdentity(ctx context.Context, identityID string) (model.Profile, error)

	// ListProfiles returns up to limit profiles in reverse insertion
	// order, skipping offset rows.
	ListProfiles(ctx context.Context, limit, offset int) ([]model.Profile, error)

	// CountProfiles is the full unfiltered profile count. It is read
	// independently of ListProfiles; the two are not a snapshot.
	CountProfiles(ctx context.Context) (int, error)

	// UpdateProfile rewrites the profile's mutable fields in place.
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error

	// UpdateSelf updates the identity's name/email and, when a profile
	// exists, its name/email/course, atomically. An identity without a
	// profile is still a valid target.
	UpdateSelf(ctx context.Context, identityID string, update SelfUpdate) error

	// DeleteStudent removes the profile and its owning identity
	// atomically. ErrNotFound on an unknown or already-deleted id.
	DeleteStudent(ctx context.Context, profileID string) error
}
