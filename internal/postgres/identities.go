package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
)

const identityColumns = `id, email, username, password_hash, role, verified, avatar_url,
		 created_at, verified_at, password_changed_at`

// IdentityStore implements goContacts.CredentialStore on the users table.
type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) Create(ctx context.Context, identity goContacts.Identity) (goContacts.Identity, error) {
	query :=
		`INSERT INTO users (id, email, username, password_hash, role, verified, avatar_url,
		 created_at, verified_at, password_changed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 `

	_, err := s.db.ExecContext(ctx, query,
		identity.ID, identity.Email, identity.Username, identity.PasswordHash, string(identity.Role),
		identity.Verified, identity.AvatarURL, identity.CreatedAt, nullTime(identity.VerifiedAt),
		identity.PasswordChangedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "users_username_key" {
				return goContacts.Identity{}, goContacts.ErrDuplicateUsername
			}
			return goContacts.Identity{}, goContacts.ErrDuplicateEmail
		}
		return goContacts.Identity{}, fmt.Errorf("db error: %w", err)
	}
	return identity, nil
}

func (s *IdentityStore) FindByEmail(ctx context.Context, email string) (goContacts.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM users
		 WHERE email = $1
		 `
	return scanIdentity(s.db.QueryRowContext(ctx, query, email))
}

func (s *IdentityStore) FindByID(ctx context.Context, id string) (goContacts.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM users
		 WHERE id = $1
		 `
	return scanIdentity(s.db.QueryRowContext(ctx, query, id))
}

func (s *IdentityStore) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	query :=
		`UPDATE users SET password_hash = $2, password_changed_at = $3
		 WHERE id = $1
		 `
	return s.execOne(ctx, query, id, hash, at)
}

func (s *IdentityStore) SetVerified(ctx context.Context, id string, at time.Time) error {
	query :=
		`UPDATE users SET verified = TRUE, verified_at = $2
		 WHERE id = $1
		 `
	return s.execOne(ctx, query, id, at)
}

func (s *IdentityStore) UpdateAvatar(ctx context.Context, id, url string) error {
	query :=
		`UPDATE users SET avatar_url = $2
		 WHERE id = $1
		 `
	return s.execOne(ctx, query, id, url)
}

func (s *IdentityStore) UpdateRole(ctx context.Context, id string, role goContacts.Role) error {
	query :=
		`UPDATE users SET role = $2
		 WHERE id = $1
		 `
	return s.execOne(ctx, query, id, string(role))
}

// Ping runs SELECT 1 against the pool.
func (s *IdentityStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *IdentityStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if invalidText(err) {
			return goContacts.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return goContacts.ErrNotFound
	}
	return nil
}

func scanIdentity(row *sql.Row) (goContacts.Identity, error) {
	var (
		identity   goContacts.Identity
		role       string
		verifiedAt sql.NullTime
	)
	err := row.Scan(&identity.ID, &identity.Email, &identity.Username, &identity.PasswordHash,
		&role, &identity.Verified, &identity.AvatarURL, &identity.CreatedAt, &verifiedAt,
		&identity.PasswordChangedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidText(err) {
			return goContacts.Identity{}, goContacts.ErrNotFound
		}
		return goContacts.Identity{}, fmt.Errorf("db error: %w", err)
	}
	identity.Role = goContacts.Role(role)
	if verifiedAt.Valid {
		identity.VerifiedAt = verifiedAt.Time
	}
	return identity, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
