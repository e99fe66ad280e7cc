package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"studentrecords/internal/model"
	"studentrecords/internal/storage"
)

func newStudent(n int) (model.Identity, model.Profile) {
	identity := model.Identity{
		ID:    fmt.Sprintf("identity-%d", n),
		Name:  fmt.Sprintf("Student %d", n),
		Email: fmt.Sprintf("student%d@example.com", n),
		Role:  model.RoleStudent,
	}
	profile := model.Profile{
		ID:             fmt.Sprintf("profile-%d", n),
		IdentityID:     identity.ID,
		Name:           identity.Name,
		Email:          identity.Email,
		Course:         "MERN Bootcamp",
		EnrollmentDate: "2026-08-28",
	}
	return identity, profile
}

func TestCreateStudentDuplicateEmail(t *testing.T) {
	store := New()
	ctx := context.Background()

	identity, profile := newStudent(1)
	if _, err := store.CreateStudent(ctx, identity, profile); err != nil {
		t.Fatalf("create error: %v", err)
	}

	dupIdentity, dupProfile := newStudent(2)
	dupIdentity.Email = identity.Email
	if _, err := store.CreateStudent(ctx, dupIdentity, dupProfile); !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// The failed create must leave nothing behind.
	if _, err := store.GetIdentityByID(ctx, dupIdentity.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no identity for failed create")
	}
	total, _ := store.CountProfiles(ctx)
	if total != 1 {
		t.Fatalf("expected 1 profile, got %d", total)
	}
}

func TestListProfilesOrderAndBounds(t *testing.T) {
	store := New()
	ctx := context.Background()

	for n := 1; n <= 5; n++ {
		identity, profile := newStudent(n)
		if _, err := store.CreateStudent(ctx, identity, profile); err != nil {
			t.Fatalf("create error: %v", err)
		}
	}

	page, err := store.ListProfiles(ctx, 3, 0)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(page))
	}
	// Most recently created first.
	if page[0].ID != "profile-5" || page[2].ID != "profile-3" {
		t.Fatalf("unexpected order: %s .. %s", page[0].ID, page[2].ID)
	}

	rest, err := store.ListProfiles(ctx, 3, 3)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rest))
	}

	beyond, err := store.ListProfiles(ctx, 3, 10)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(beyond) != 0 {
		t.Fatalf("expected empty page past the end, got %d rows", len(beyond))
	}
}

func TestDeleteStudentRemovesBothRows(t *testing.T) {
	store := New()
	ctx := context.Background()

	identity, profile := newStudent(1)
	if _, err := store.CreateStudent(ctx, identity, profile); err != nil {
		t.Fatalf("create error: %v", err)
	}

	if err := store.DeleteStudent(ctx, profile.ID); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if _, err := store.GetIdentityByID(ctx, identity.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected identity to be gone")
	}
	if _, err := store.GetIdentityByEmail(ctx, identity.Email); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected email to be released")
	}

	// Repeat delete is NotFound, never a partial success.
	if err := store.DeleteStudent(ctx, profile.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpdateSelfWithoutProfile(t *testing.T) {
	store := New()
	ctx := context.Background()

	admin := model.Identity{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
	if err := store.CreateIdentity(ctx, admin); err != nil {
		t.Fatalf("create error: %v", err)
	}

	err := store.UpdateSelf(ctx, admin.ID, storage.SelfUpdate{Name: "Root", Email: "root@example.com"})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}

	got, err := store.GetIdentityByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if got.Name != "Root" {
		t.Fatalf("expected updated name, got %s", got.Name)
	}
}

func TestUpdateSelfDuplicateEmail(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, firstProfile := newStudent(1)
	second, secondProfile := newStudent(2)
	if _, err := store.CreateStudent(ctx, first, firstProfile); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := store.CreateStudent(ctx, second, secondProfile); err != nil {
		t.Fatalf("create error: %v", err)
	}

	err := store.UpdateSelf(ctx, second.ID, storage.SelfUpdate{Name: second.Name, Email: first.Email, Course: "Go"})
	if !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}
