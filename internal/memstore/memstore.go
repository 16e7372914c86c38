// Package memstore keeps identities and contacts in process memory. It is
// used by tests and by the -dev mode of contactsd.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/contacts"
)

// Store implements goContacts.CredentialStore and contacts.Repository
// behind one mutex.
type Store struct {
	mu         sync.RWMutex
	identities map[string]goContacts.Identity
	byEmail    map[string]string
	byUsername map[string]string
	contacts   map[string]contacts.Contact
}

func New() *Store {
	return &Store{
		identities: make(map[string]goContacts.Identity),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		contacts:   make(map[string]contacts.Contact),
	}
}

/* ==== IDENTITIES ==== */

func (s *Store) Create(_ context.Context, identity goContacts.Identity) (goContacts.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[identity.Email]; ok {
		return goContacts.Identity{}, goContacts.ErrDuplicateEmail
	}
	if _, ok := s.byUsername[strings.ToLower(identity.Username)]; ok {
		return goContacts.Identity{}, goContacts.ErrDuplicateUsername
	}
	s.identities[identity.ID] = identity
	s.byEmail[identity.Email] = identity.ID
	s.byUsername[strings.ToLower(identity.Username)] = identity.ID
	return identity, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (goContacts.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return goContacts.Identity{}, goContacts.ErrNotFound
	}
	return s.identities[id], nil
}

func (s *Store) FindByID(_ context.Context, id string) (goContacts.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[id]
	if !ok {
		return goContacts.Identity{}, goContacts.ErrNotFound
	}
	return identity, nil
}

func (s *Store) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	return s.mutate(id, func(i *goContacts.Identity) {
		i.PasswordHash = hash
		i.PasswordChangedAt = at
	})
}

func (s *Store) SetVerified(_ context.Context, id string, at time.Time) error {
	return s.mutate(id, func(i *goContacts.Identity) {
		i.Verified = true
		i.VerifiedAt = at
	})
}

func (s *Store) UpdateAvatar(_ context.Context, id, url string) error {
	return s.mutate(id, func(i *goContacts.Identity) { i.AvatarURL = url })
}

func (s *Store) UpdateRole(_ context.Context, id string, role goContacts.Role) error {
	return s.mutate(id, func(i *goContacts.Identity) { i.Role = role })
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) mutate(id string, fn func(*goContacts.Identity)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return goContacts.ErrNotFound
	}
	fn(&identity)
	s.identities[id] = identity
	return nil
}

/* ==== CONTACTS ==== */

// ContactRepository adapts the Store to contacts.Repository. The method
// sets of the two interfaces overlap, so they cannot share a receiver.
func (s *Store) ContactRepository() contacts.Repository {
	return contactRepo{s}
}

type contactRepo struct{ s *Store }

func (r contactRepo) List(_ context.Context, ownerID string, f contacts.Filter, window *contacts.BirthdayWindow) ([]contacts.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(f.Search)
	out := make([]contacts.Contact, 0)
	for _, c := range r.s.contacts {
		if c.OwnerID != ownerID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.FirstName), needle) &&
			!strings.Contains(strings.ToLower(c.LastName), needle) &&
			!strings.Contains(c.Email, needle) {
			continue
		}
		if window != nil && !window.Contains(c.Birthday) {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})

	if f.Skip >= len(out) {
		return []contacts.Contact{}, nil
	}
	out = out[f.Skip:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r contactRepo) Get(_ context.Context, ownerID, id string) (contacts.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return contacts.Contact{}, contacts.ErrNotFound
	}
	return c, nil
}

func (r contactRepo) Create(_ context.Context, c contacts.Contact) (contacts.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTakenLocked(c.OwnerID, c.Email, "") {
		return contacts.Contact{}, contacts.ErrDuplicateEmail
	}
	r.s.contacts[c.ID] = c
	return c, nil
}

func (r contactRepo) Update(_ context.Context, c contacts.Contact) (contacts.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.contacts[c.ID]
	if !ok || current.OwnerID != c.OwnerID {
		return contacts.Contact{}, contacts.ErrNotFound
	}
	if r.emailTakenLocked(c.OwnerID, c.Email, c.ID) {
		return contacts.Contact{}, contacts.ErrDuplicateEmail
	}
	c.CreatedAt = current.CreatedAt
	r.s.contacts[c.ID] = c
	return c, nil
}

func (r contactRepo) Delete(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return contacts.ErrNotFound
	}
	delete(r.s.contacts, id)
	return nil
}

func (r contactRepo) emailTakenLocked(ownerID, email, exceptID string) bool {
	for id, c := range r.s.contacts {
		if c.OwnerID == ownerID && c.Email == email && id != exceptID {
			return true
		}
	}
	return false
}
