package memstore

import (
	"context"
	"testing"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/stretchr/testify/require"
)

var _ goContacts.CredentialStore = (*Store)(nil)

func TestIdentityLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.Create(ctx, goContacts.Identity{ID: "id-1", Email: "a@example.com", Username: "Alice", Role: goContacts.RoleUser})
	require.NoError(t, err)
	require.Equal(t, "id-1", created.ID)

	_, err = s.Create(ctx, goContacts.Identity{ID: "id-2", Email: "a@example.com", Username: "other"})
	require.ErrorIs(t, err, goContacts.ErrDuplicateEmail)
	_, err = s.Create(ctx, goContacts.Identity{ID: "id-3", Email: "b@example.com", Username: "alice"})
	require.ErrorIs(t, err, goContacts.ErrDuplicateUsername)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetVerified(ctx, "id-1", at))
	require.NoError(t, s.UpdatePassword(ctx, "id-1", "hash", at))
	require.NoError(t, s.UpdateAvatar(ctx, "id-1", "https://cdn.test/a"))
	require.NoError(t, s.UpdateRole(ctx, "id-1", goContacts.RoleAdmin))

	got, err := s.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.True(t, got.Verified)
	require.Equal(t, at, got.VerifiedAt)
	require.Equal(t, "hash", got.PasswordHash)
	require.Equal(t, at, got.PasswordChangedAt)
	require.Equal(t, "https://cdn.test/a", got.AvatarURL)
	require.Equal(t, goContacts.RoleAdmin, got.Role)

	_, err = s.FindByID(ctx, "missing")
	require.ErrorIs(t, err, goContacts.ErrNotFound)
	_, err = s.FindByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, goContacts.ErrNotFound)
	require.ErrorIs(t, s.UpdateRole(ctx, "missing", goContacts.RoleUser), goContacts.ErrNotFound)
	require.NoError(t, s.Ping(ctx))
}
