package goContacts

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goContacts/internal/logging"
	"github.com/MrEthical07/goContacts/token"
)

// Role is the coarse authorization level of an identity.
type Role string

const (
	// RoleUser is the standard role every registration starts with.
	RoleUser Role = "user"
	// RoleAdmin is the elevated role.
	RoleAdmin Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := roleRank[r]
	return r, ok
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Identity is the stored account record. PasswordHash never leaves the
// engine: Principal and the identity cache carry everything else.
type Identity struct {
	ID                string
	Email             string
	Username          string
	PasswordHash      string
	Role              Role
	Verified          bool
	AvatarURL         string
	CreatedAt         time.Time
	VerifiedAt        time.Time
	PasswordChangedAt time.Time
}

// Principal is an authorized caller: the identity behind an access token,
// without the password hash.
type Principal struct {
	IdentityID string
	Email      string
	Username   string
	Role       Role
	Verified   bool
	AvatarURL  string
	CreatedAt  time.Time

	TokenID   string
	ExpiresAt time.Time
	// FromCache is true when the identity was served by the identity cache.
	FromCache bool
}

// AccessToken is the result of Login and Refresh.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// RegisterInput is the data needed to create an identity.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// RegisterResult reports the created identity and whether the verification
// email went out.
type RegisterResult struct {
	Identity  Identity
	Delivered bool
}

// ConfirmResult reports the confirmed identity. AlreadyVerified is true for
// a repeated confirmation, which changes nothing.
type ConfirmResult struct {
	Identity        Identity
	AlreadyVerified bool
}

// CredentialStore persists identities. Every method is atomic for a single
// identity. Implementations return ErrNotFound, ErrDuplicateEmail and
// ErrDuplicateUsername for those conditions; any other error is treated as
// the store being unavailable.
type CredentialStore interface {
	Create(ctx context.Context, identity Identity) (Identity, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
	FindByID(ctx context.Context, id string) (Identity, error)
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	SetVerified(ctx context.Context, id string, at time.Time) error
	UpdateAvatar(ctx context.Context, id, url string) error
	UpdateRole(ctx context.Context, id string, role Role) error
	Ping(ctx context.Context) error
}

// Notification is one outbound email carrying a token.
type Notification struct {
	To        string
	Username  string
	Token     string
	Purpose   token.Purpose
	ExpiresAt time.Time
}

// Notifier delivers verification and reset emails. The engine does not
// retry a failed Send.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Send(ctx context.Context, n Notification) error { return f(ctx, n) }

// AvatarStorage uploads avatar images and returns their public URL.
type AvatarStorage interface {
	Upload(ctx context.Context, identityKey string, data []byte, contentType string) (string, error)
}

// Limiter is the request limiter consulted by Login and the HTTP layer.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Logger is the structured logger accepted by the Builder.
type Logger = logging.Logger
