package contacts_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goContacts/contacts"
	"github.com/MrEthical07/goContacts/internal/memstore"
	"github.com/stretchr/testify/require"
)

func newService(now time.Time) *contacts.Service {
	return contacts.NewService(memstore.New().ContactRepository(), contacts.WithClock(func() time.Time { return now }))
}

func create(t *testing.T, s *contacts.Service, owner, first, last, email, birthday string) contacts.Contact {
	t.Helper()
	c, err := s.Create(context.Background(), owner, contacts.Input{
		FirstName: first, LastName: last, Email: email, Phone: "555-0100", Birthday: birthday,
	})
	require.NoError(t, err)
	return c
}

func TestCreateGetOwnership(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	c := create(t, s, "owner-a", "Ada", "Lovelace", "ada@example.com", "1815-12-10")
	require.NotEmpty(t, c.ID)
	require.Equal(t, "owner-a", c.OwnerID)
	require.Equal(t, c.CreatedAt, c.UpdatedAt)

	got, err := s.Get(ctx, "owner-a", c.ID)
	require.NoError(t, err)
	require.Equal(t, c, got)

	_, err = s.Get(ctx, "owner-b", c.ID)
	require.ErrorIs(t, err, contacts.ErrNotFound)

	_, err = s.Update(ctx, "owner-b", c.ID, contacts.Patch{})
	require.ErrorIs(t, err, contacts.ErrNotFound)

	require.ErrorIs(t, s.Delete(ctx, "owner-b", c.ID), contacts.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "owner-a", c.ID))
	require.ErrorIs(t, s.Delete(ctx, "owner-a", c.ID), contacts.ErrNotFound)
}

func TestDuplicateEmailPerOwner(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Now())

	create(t, s, "owner-a", "Ada", "Lovelace", "ada@example.com", "1815-12-10")
	_, err := s.Create(ctx, "owner-a", contacts.Input{
		FirstName: "A", LastName: "L", Email: "ADA@example.com", Phone: "12345", Birthday: "1815-12-10",
	})
	require.ErrorIs(t, err, contacts.ErrDuplicateEmail)

	// Another owner may keep the same address.
	create(t, s, "owner-b", "Ada", "Lovelace", "ada@example.com", "1815-12-10")

	other := create(t, s, "owner-a", "Charles", "Babbage", "charles@example.com", "1791-12-26")
	email := "ada@example.com"
	_, err = s.Update(ctx, "owner-a", other.ID, contacts.Patch{Email: &email})
	require.ErrorIs(t, err, contacts.ErrDuplicateEmail)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := now
	s := contacts.NewService(memstore.New().ContactRepository(), contacts.WithClock(func() time.Time { return clock }))

	c := create(t, s, "o", "Ada", "Lovelace", "ada@example.com", "1815-12-10")
	clock = now.Add(time.Hour)

	unchanged, err := s.Update(ctx, "o", c.ID, contacts.Patch{})
	require.NoError(t, err)
	require.Equal(t, c.UpdatedAt, unchanged.UpdatedAt)

	last := "  King "
	updated, err := s.Update(ctx, "o", c.ID, contacts.Patch{LastName: &last})
	require.NoError(t, err)
	require.Equal(t, "King", updated.LastName)
	require.Equal(t, c.CreatedAt, updated.CreatedAt)
	require.Equal(t, clock, updated.UpdatedAt)

	empty := ""
	_, err = s.Update(ctx, "o", c.ID, contacts.Patch{FirstName: &empty})
	var verr *contacts.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestListSearchAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	create(t, s, "o", "Grace", "Hopper", "grace@navy.mil", "1906-12-09")
	create(t, s, "o", "Ada", "Lovelace", "ada@example.com", "1815-12-10")
	create(t, s, "o", "Alan", "Turing", "alan@example.org", "1912-06-23")
	create(t, s, "other", "Ada", "Clone", "clone@example.com", "1815-12-10")

	all, err := s.List(ctx, "o", contacts.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"Hopper", "Lovelace", "Turing"}, []string{all[0].LastName, all[1].LastName, all[2].LastName})

	hits, err := s.List(ctx, "o", contacts.Filter{Search: "  ADA "})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "Lovelace", hits[0].LastName)

	hits, err = s.List(ctx, "o", contacts.Filter{Search: "navy"})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = s.List(ctx, "o", contacts.Filter{Search: "%"})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Now())
	for i := 0; i < 5; i++ {
		create(t, s, "o", "F", fmt.Sprintf("L%d", i), fmt.Sprintf("c%d@example.com", i), "2000-01-01")
	}

	page, err := s.List(ctx, "o", contacts.Filter{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "L1", page[0].LastName)
	require.Equal(t, "L2", page[1].LastName)

	page, err = s.List(ctx, "o", contacts.Filter{Skip: 10})
	require.NoError(t, err)
	require.Empty(t, page)

	page, err = s.List(ctx, "o", contacts.Filter{Skip: -3, Limit: -1})
	require.NoError(t, err)
	require.Len(t, page, 5)
}

func TestListUpcomingBirthdays(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Date(2026, 12, 28, 10, 0, 0, 0, time.UTC))

	create(t, s, "o", "New", "Year", "ny@example.com", "1990-01-02")
	create(t, s, "o", "Old", "Year", "oy@example.com", "1990-12-30")
	create(t, s, "o", "Far", "Away", "far@example.com", "1990-06-01")

	hits, err := s.List(ctx, "o", contacts.Filter{BirthdaysWithinDays: 7})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	_, err = s.List(ctx, "o", contacts.Filter{BirthdaysWithinDays: -1})
	var verr *contacts.ValidationError
	require.True(t, errors.As(err, &verr))
}
