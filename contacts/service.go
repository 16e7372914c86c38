package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goContacts/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Service applies validation and ownership rules on top of a Repository.
type Service struct {
	repo Repository
	log  logging.Logger
	now  func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log logging.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, log: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "contacts")
	return s
}

// List returns the owner's contacts matching f, ordered by last name then
// first name.
func (s *Service) List(ctx context.Context, ownerID string, f Filter) ([]Contact, error) {
	if f.Skip < 0 {
		f.Skip = 0
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if f.BirthdaysWithinDays < 0 {
		return nil, &ValidationError{Fields: map[string]error{"birthdays_within_days": errors.New("must be >= 0")}}
	}
	f.Search = strings.TrimSpace(f.Search)

	var window *BirthdayWindow
	if f.BirthdaysWithinDays > 0 {
		w := Window(s.now(), f.BirthdaysWithinDays)
		window = &w
	}

	out, err := s.repo.List(ctx, ownerID, f, window)
	if err != nil {
		s.log.Error(ctx, "list contacts failed", "owner_id", ownerID, "error", err)
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (Contact, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// Create validates in and stores it for the owner.
func (s *Service) Create(ctx context.Context, ownerID string, in Input) (Contact, error) {
	if err := in.Validate(); err != nil {
		return Contact{}, err
	}
	now := s.now().UTC()
	c, err := s.repo.Create(ctx, Contact{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Birthday:  in.Birthday,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Contact{}, err
	}
	s.log.Info(ctx, "contact created", "owner_id", ownerID, "contact_id", c.ID)
	return c, nil
}

// Update applies p to the owner's contact.
func (s *Service) Update(ctx context.Context, ownerID, id string, p Patch) (Contact, error) {
	current, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Contact{}, err
	}
	if p.Empty() {
		return current, nil
	}
	next, err := p.Apply(current)
	if err != nil {
		return Contact{}, err
	}
	next.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}
