package contacts

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for missing contacts and for contacts owned by
	// someone else.
	ErrNotFound = errors.New("contact not found")
	// ErrDuplicateEmail is returned when the owner already has a contact
	// with the same email.
	ErrDuplicateEmail = errors.New("contact email already exists")
	// ErrUnavailable wraps repository failures.
	ErrUnavailable = errors.New("contact repository unavailable")
)

// BirthdayLayout is the wire and storage format of Contact.Birthday.
const BirthdayLayout = "2006-01-02"

// Contact is one entry in an owner's contact book.
type Contact struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Birthday  string    `json:"birthday"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows List. Zero values disable each criterion.
type Filter struct {
	// Search matches first name, last name or email, case-insensitively.
	Search string
	// BirthdaysWithinDays keeps contacts whose next birthday falls within
	// [today, today+N]. The window wraps over the year end.
	BirthdaysWithinDays int
	Skip                int
	Limit               int
}

// BirthdayWindow is the month-day range a birthday filter resolves to, as
// "MM-DD" strings. When Wraps is true the range crosses December 31 and a
// birthday matches if it is >= From or <= To.
type BirthdayWindow struct {
	From  string
	To    string
	Wraps bool
}

// Window resolves days into a month-day range starting at today.
func Window(today time.Time, days int) BirthdayWindow {
	if days >= 365 {
		return BirthdayWindow{From: "01-01", To: "12-31"}
	}
	end := today.AddDate(0, 0, days)
	w := BirthdayWindow{From: today.Format("01-02"), To: end.Format("01-02")}
	w.Wraps = w.To < w.From
	return w
}

// Contains reports whether a birthday (YYYY-MM-DD) falls inside w.
func (w BirthdayWindow) Contains(birthday string) bool {
	if len(birthday) != len(BirthdayLayout) {
		return false
	}
	md := birthday[5:]
	if w.Wraps {
		return md >= w.From || md <= w.To
	}
	return md >= w.From && md <= w.To
}

// Repository persists contacts. Every method is scoped to ownerID: a
// contact owned by someone else is reported as ErrNotFound.
type Repository interface {
	List(ctx context.Context, ownerID string, f Filter, window *BirthdayWindow) ([]Contact, error)
	Get(ctx context.Context, ownerID, id string) (Contact, error)
	Create(ctx context.Context, c Contact) (Contact, error)
	Update(ctx context.Context, c Contact) (Contact, error)
	Delete(ctx context.Context, ownerID, id string) error
}
