package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	goContacts "github.com/MrEthical07/goContacts"
	"github.com/jackc/pgx/v5/pgconn"
)

func newIdentityStoreWithMock(t *testing.T) (*IdentityStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewIdentityStore(db), mock, db
}

var identityRowColumns = []string{
	"id", "email", "username", "password_hash", "role", "verified", "avatar_url",
	"created_at", "verified_at", "password_changed_at",
}

func sampleIdentity() goContacts.Identity {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return goContacts.Identity{
		ID:                "8d7c6a3e-5a43-4c3f-9a4e-3f1d2a0b9c11",
		Email:             "alice@example.com",
		Username:          "alice",
		PasswordHash:      "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		Role:              goContacts.RoleUser,
		AvatarURL:         "https://www.gravatar.com/avatar/x",
		CreatedAt:         at,
		PasswordChangedAt: at,
	}
}

func TestIdentityCreate_Success(t *testing.T) {
	store, mock, db := newIdentityStoreWithMock(t)
	defer db.Close()

	id := sampleIdentity()
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*username,.*VALUES\s*\(\$1,.*\$10\)\s*$`).
		WithArgs(id.ID, id.Email, id.Username, id.PasswordHash, "user", false, id.AvatarURL,
			id.CreatedAt, sqlmock.AnyArg(), id.PasswordChangedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := store.Create(context.Background(), id)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != id.ID {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityCreate_UniqueViolations(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{"users_email_key", goContacts.ErrDuplicateEmail},
		{"users_username_key", goContacts.ErrDuplicateUsername},
	}
	for _, tc := range cases {
		store, mock, db := newIdentityStoreWithMock(t)

		mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tc.constraint})

		_, err := store.Create(context.Background(), sampleIdentity())
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.constraint, tc.want, err)
		}
		db.Close()
	}
}

func TestIdentityCreate_DBError(t *testing.T) {
	store, mock, db := newIdentityStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := store.Create(context.Background(), sampleIdentity())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestIdentityFindByEmail_Found(t *testing.T) {
	store, mock, db := newIdentityStoreWithMock(t)
	defer db.Close()

	id := sampleIdentity()
	verifiedAt := id.CreatedAt.Add(time.Hour)
	rows := sqlmock.NewRows(identityRowColumns).AddRow(id.ID, id.Email, id.Username, id.PasswordHash,
		"admin", true, id.AvatarURL, id.CreatedAt, verifiedAt, id.PasswordChangedAt)
	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`).
		WithArgs(id.Email).
		WillReturnRows(rows)

	got, err := store.FindByEmail(context.Background(), id.Email)
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.Role != goContacts.RoleAdmin || !got.Verified || !got.VerifiedAt.Equal(verifiedAt) {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestIdentityFindByID_NullVerifiedAt(t *testing.T) {
	store, mock, db := newIdentityStoreWithMock(t)
	defer db.Close()

	id := sampleIdentity()
	rows := sqlmock.NewRows(identityRowColumns).AddRow(id.ID, id.Email, id.Username, id.PasswordHash,
		"user", false, id.AvatarURL, id.CreatedAt, nil, id.PasswordChangedAt)
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs(id.ID).
		WillReturnRows(rows)

	got, err := store.FindByID(context.Background(), id.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if !got.VerifiedAt.IsZero() {
		t.Fatalf("expected zero VerifiedAt, got %v", got.VerifiedAt)
	}
}

func TestIdentityFind_NotFound(t *testing.T) {
	store, mock, db := newIdentityStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+email\s*=\s*\$1`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+id\s*=\s*\$1`).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02"})

	if _, err := store.FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, goContacts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindByID(context.Background(), "not-a-uuid"); !errors.Is(err, goContacts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestIdentityUpdates(t *testing.T) {
	store, mock, db := newIdentityStoreWithMock(t)
	defer db.Close()

	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*password_changed_at\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("u-1", "new-hash", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+verified\s*=\s*TRUE,\s*verified_at\s*=\s*\$2`).
		WithArgs("u-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+avatar_url\s*=\s*\$2`).
		WithArgs("u-1", "https://cdn/x.png").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+role\s*=\s*\$2`).
		WithArgs("u-2", "admin").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := store.UpdatePassword(ctx, "u-1", "new-hash", at); err != nil {
		t.Fatalf("UpdatePassword error: %v", err)
	}
	if err := store.SetVerified(ctx, "u-1", at); err != nil {
		t.Fatalf("SetVerified error: %v", err)
	}
	if err := store.UpdateAvatar(ctx, "u-1", "https://cdn/x.png"); err != nil {
		t.Fatalf("UpdateAvatar error: %v", err)
	}
	if err := store.UpdateRole(ctx, "u-2", goContacts.RoleAdmin); !errors.Is(err, goContacts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityPing(t *testing.T) {
	store, mock, db := newIdentityStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT 1$`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`^SELECT 1$`).WillReturnError(errors.New("conn refused"))

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure")
	}
}
