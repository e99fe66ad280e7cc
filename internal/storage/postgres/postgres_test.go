package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"studentrecords/internal/model"
	"studentrecords/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	url := os.Getenv("STUDENTRECORDS_TEST_DB")
	if url == "" {
		url = os.Getenv("TEST_DATABASE_URL")
	}
	if url == "" {
		t.Skip("STUDENTRECORDS_TEST_DB or TEST_DATABASE_URL not set")
		return nil
	}
	store, err := Open(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return store
}

func testStudent() (model.Identity, model.Profile) {
	identity := model.Identity{
		ID:        uuid.NewString(),
		Name:      "Test Student",
		Email:     fmt.Sprintf("student.%s@example.local", uuid.NewString()[:8]),
		Role:      model.RoleStudent,
		CreatedAt: time.Now().UTC(),
	}
	profile := model.Profile{
		ID:             uuid.NewString(),
		IdentityID:     identity.ID,
		Name:           identity.Name,
		Email:          identity.Email,
		Course:         "MERN Bootcamp",
		EnrollmentDate: time.Now().UTC().Format("2006-01-02"),
	}
	return identity, profile
}

func TestCreateStudentRoundTrip(t *testing.T) {
	store := openTestStore(t)
	if store == nil {
		return
	}
	defer store.Close()
	ctx := context.Background()

	identity, profile := testStudent()
	created, err := store.CreateStudent(ctx, identity, profile)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created.Seq == 0 {
		t.Fatalf("expected assigned seq")
	}
	defer func() { _ = store.DeleteStudent(ctx, profile.ID) }()

	got, err := store.GetProfileByIdentity(ctx, identity.ID)
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if got.ID != profile.ID || got.Course != profile.Course {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestCreateStudentDuplicateEmailLeavesNoProfile(t *testing.T) {
	store := openTestStore(t)
	if store == nil {
		return
	}
	defer store.Close()
	ctx := context.Background()

	identity, profile := testStudent()
	if _, err := store.CreateStudent(ctx, identity, profile); err != nil {
		t.Fatalf("create error: %v", err)
	}
	defer func() { _ = store.DeleteStudent(ctx, profile.ID) }()

	before, err := store.CountProfiles(ctx)
	if err != nil {
		t.Fatalf("count error: %v", err)
	}

	dupIdentity, dupProfile := testStudent()
	dupIdentity.Email = identity.Email
	dupProfile.IdentityID = dupIdentity.ID
	if _, err := store.CreateStudent(ctx, dupIdentity, dupProfile); !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	after, err := store.CountProfiles(ctx)
	if err != nil {
		t.Fatalf("count error: %v", err)
	}
	if after != before {
		t.Fatalf("expected no partial insert, count went %d -> %d", before, after)
	}
}

func TestDeleteStudentIdempotent(t *testing.T) {
	store := openTestStore(t)
	if store == nil {
		return
	}
	defer store.Close()
	ctx := context.Background()

	identity, profile := testStudent()
	if _, err := store.CreateStudent(ctx, identity, profile); err != nil {
		t.Fatalf("create error: %v", err)
	}

	if err := store.DeleteStudent(ctx, profile.ID); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if _, err := store.GetIdentityByID(ctx, identity.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected identity to be gone")
	}
	if err := store.DeleteStudent(ctx, profile.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
