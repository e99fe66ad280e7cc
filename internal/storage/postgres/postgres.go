package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studentrecords/internal/model"
	"studentrecords/internal/storage"
)

const migration = `
CREATE TABLE IF NOT EXISTS identities (
    id uuid PRIMARY KEY,
    name text NOT NULL,
    email text NOT NULL UNIQUE,
    secret_hash text NOT NULL,
    role text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profiles (
    id uuid PRIMARY KEY,
    identity_id uuid NOT NULL UNIQUE REFERENCES identities(id),
    seq bigint GENERATED ALWAYS AS IDENTITY,
    name text NOT NULL,
    email text NOT NULL,
    course text NOT NULL,
    enrollment_date text NOT NULL
);

CREATE INDEX IF NOT EXISTS profiles_seq_idx ON profiles (seq DESC);
`

type Store struct {
	pool *pgxpool.Pool
}

// Open connects, applies the schema, and returns the store.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, migration); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) CreateIdentity(ctx context.Context, identity model.Identity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (id, name, email, secret_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, identity.ID, identity.Name, identity.Email, identity.SecretHash, identity.Role, identity.CreatedAt)
	return translateErr(err)
}

func (s *Store) CreateStudent(ctx context.Context, identity model.Identity, profile model.Profile) (model.Profile, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO identities (id, name, email, secret_hash, role, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, identity.ID, identity.Name, identity.Email, identity.SecretHash, identity.Role, identity.CreatedAt); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO profiles (id, identity_id, name, email, course, enrollment_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING seq
		`, profile.ID, profile.IdentityID, profile.Name, profile.Email, profile.Course, profile.EnrollmentDate)
		return row.Scan(&profile.Seq)
	})
	if err != nil {
		return model.Profile{}, translateErr(err)
	}
	return profile, nil
}

func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (model.Identity, error) {
	return s.scanIdentity(s.pool.QueryRow(ctx, `
		SELECT id, name, email, secret_hash, role, created_at
		FROM identities
		WHERE email = $1
	`, email))
}

func (s *Store) GetIdentityByID(ctx context.Context, id string) (model.Identity, error) {
	return s.scanIdentity(s.pool.QueryRow(ctx, `
		SELECT id, name, email, secret_hash, role, created_at
		FROM identities
		WHERE id = $1
	`, id))
}

func (s *Store) scanIdentity(row pgx.Row) (model.Identity, error) {
	var identity model.Identity
	err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.SecretHash,
		&identity.Role,
		&identity.CreatedAt,
	)
	return identity, translateErr(err)
}

func (s *Store) GetProfileByID(ctx context.Context, id string) (model.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `
		SELECT id, identity_id, seq, name, email, course, enrollment_date
		FROM profiles
		WHERE id = $1
	`, id))
}

func (s *Store) GetProfileByIdentity(ctx context.Context, identityID string) (model.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `
		SELECT id, identity_id, seq, name, email, course, enrollment_date
		FROM profiles
		WHERE identity_id = $1
	`, identityID))
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var profile model.Profile
	err := row.Scan(
		&profile.ID,
		&profile.IdentityID,
		&profile.Seq,
		&profile.Name,
		&profile.Email,
		&profile.Course,
		&profile.EnrollmentDate,
	)
	return profile, translateErr(err)
}

func (s *Store) ListProfiles(ctx context.Context, limit, offset int) ([]model.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, identity_id, seq, name, email, course, enrollment_date
		FROM profiles
		ORDER BY seq DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0, limit)
	for rows.Next() {
		var profile model.Profile
		if err := rows.Scan(
			&profile.ID,
			&profile.IdentityID,
			&profile.Seq,
			&profile.Name,
			&profile.Email,
			&profile.Course,
			&profile.EnrollmentDate,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (s *Store) CountProfiles(ctx context.Context) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total)
	return total, err
}

func (s *Store) UpdateProfile(ctx context.Context, id string, update storage.ProfileUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET name = $1, email = $2, course = $3, enrollment_date = $4
		WHERE id = $5
	`, update.Name, update.Email, update.Course, update.EnrollmentDate, id)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateSelf(ctx context.Context, identityID string, update storage.SelfUpdate) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE identities
			SET name = $1, email = $2
			WHERE id = $3
		`, update.Name, update.Email, identityID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		// No row here is fine: admins have no profile.
		_, err = tx.Exec(ctx, `
			UPDATE profiles
			SET name = $1, email = $2, course = $3
			WHERE identity_id = $4
		`, update.Name, update.Email, update.Course, identityID)
		return err
	})
	return translateErr(err)
}

func (s *Store) DeleteStudent(ctx context.Context, profileID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var identityID string
		row := tx.QueryRow(ctx, `SELECT identity_id FROM profiles WHERE id = $1`, profileID)
		if err := row.Scan(&identityID); err != nil {
			return translateErr(err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, profileID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM identities WHERE id = $1`, identityID)
		return err
	})
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrDuplicateEmail
	}
	return err
}
