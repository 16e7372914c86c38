package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWS algorithm used by a [Codec].
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC secret. This is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the public key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrInvalidSignature is returned when the token signature does not verify,
	// the token is malformed, or it was signed with an unexpected algorithm.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired is returned when the current time is at or after expires_at.
	ErrExpired = errors.New("token expired")
	// ErrPurposeMismatch is returned when the embedded purpose differs from the expected one.
	ErrPurposeMismatch = errors.New("token purpose mismatch")
)

// Config configures a [Codec]. Secret is required for HS256; Ed25519 needs
// PrivateKey to issue and PublicKey to decode (raw or PEM encoded).
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
}

// Claims is the signed payload shared by every purpose. Role is only set on
// access tokens.
type Claims struct {
	Purpose Purpose `json:"pur"`
	Role    string  `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Decoded is the validated view of a token returned by [Codec.Decode].
type Decoded struct {
	ID        string
	Subject   string
	Purpose   Purpose
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining returns how long the token stays valid relative to now.
func (d Decoded) Remaining(now time.Time) time.Duration {
	return d.ExpiresAt.Sub(now)
}

// Codec issues and decodes purpose-tagged bearer tokens. It holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	config     Config
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	now        func() time.Time
	parserOpts []jwt.ParserOption
}

// Option customizes a [Codec].
type Option func(*Codec)

// WithClock overrides the wall clock used for issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New validates cfg and builds a [Codec].
func New(cfg Config, opts ...Option) (*Codec, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)

	c := &Codec{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < 16 {
			return nil, errors.New("hs256 requires a secret of at least 16 bytes")
		}
		c.method = jwt.SigningMethodHS256
		c.signKey = cfg.Secret
		c.verifyKey = cfg.Secret
	case MethodEd25519:
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires a public key")
		}
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		c.method = jwt.SigningMethodEdDSA
		c.verifyKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			c.signKey = priv
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	// Expiry is checked by Decode against c.now so the parser must not reject
	// on its own clock.
	c.parserOpts = []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	}

	return c, nil
}

// Issue signs a token for subject with the given purpose and lifetime.
// role is embedded only for [PurposeAccess]. Token times have one second
// granularity: the expiry is rounded up, so a token lives at least ttl and
// less than ttl plus one second.
func (c *Codec) Issue(subject string, purpose Purpose, ttl time.Duration, role string) (string, error) {
	tok, _, err := c.IssueWithClaims(subject, purpose, ttl, role)
	return tok, err
}

// IssueWithClaims is Issue that also returns the claims it signed, so the
// caller knows the token ID and expiry without decoding.
func (c *Codec) IssueWithClaims(subject string, purpose Purpose, ttl time.Duration, role string) (string, Decoded, error) {
	if !purpose.Valid() {
		return "", Decoded{}, fmt.Errorf("issue: %w", ErrUnknownPurpose)
	}
	if subject == "" {
		return "", Decoded{}, errors.New("issue: empty subject")
	}
	if ttl <= 0 {
		return "", Decoded{}, errors.New("issue: ttl must be positive")
	}
	if c.signKey == nil {
		return "", Decoded{}, errors.New("issue: codec has no signing key")
	}

	now := c.now()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry(now, ttl)),
		},
	}
	if purpose == PurposeAccess {
		claims.Role = role
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
	if err != nil {
		return "", Decoded{}, err
	}
	return signed, Decoded{
		ID:        claims.ID,
		Subject:   subject,
		Purpose:   purpose,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Decode verifies the signature, then expiry, then purpose, in that order.
// The returned error wraps exactly one of [ErrInvalidSignature], [ErrExpired]
// or [ErrPurposeMismatch].
func (c *Codec) Decode(tokenStr string, expected Purpose) (Decoded, error) {
	if tokenStr == "" {
		return Decoded{}, fmt.Errorf("%w: empty token", ErrInvalidSignature)
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(c.parserOpts...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.verifyKey, nil
	})
	if err != nil || !parsed.Valid {
		return Decoded{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.ExpiresAt == nil || claims.Subject == "" || !claims.Purpose.Valid() {
		return Decoded{}, fmt.Errorf("%w: incomplete claims", ErrInvalidSignature)
	}
	if c.config.Issuer != "" && claims.Issuer != c.config.Issuer {
		return Decoded{}, fmt.Errorf("%w: issuer", ErrInvalidSignature)
	}
	if c.config.Audience != "" && !containsAudience(claims.Audience, c.config.Audience) {
		return Decoded{}, fmt.Errorf("%w: audience", ErrInvalidSignature)
	}

	if !c.now().Before(claims.ExpiresAt.Time) {
		return Decoded{}, ErrExpired
	}
	if claims.Purpose != expected {
		return Decoded{}, fmt.Errorf("%w: got %s, want %s", ErrPurposeMismatch, claims.Purpose, expected)
	}

	out := Decoded{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Purpose:   claims.Purpose,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// expiry is now+ttl rounded up to a whole second.
func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if t := exp.Truncate(time.Second); t.Before(exp) {
		return t.Add(time.Second)
	}
	return exp
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
