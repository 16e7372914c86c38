package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goContacts "github.com/MrEthical07/goContacts"
)

// Authorizer resolves a bearer token into a principal. *goContacts.Engine
// implements it.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string, min goContacts.Role) (*goContacts.Principal, error)
}

// Allower is the limiter consulted by RateLimit. *goContacts.Engine
// implements it.
type Allower interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Guard rejects requests without a valid access token for an identity
// holding at least min, and stores the principal in the request context.
func Guard(a Authorizer, min goContacts.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, status := authorize(r.Context(), a, r.Header.Get("Authorization"), min)
			if p == nil {
				writeStatus(w, status)
				return
			}
			next.ServeHTTP(w, r.WithContext(goContacts.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireUser admits any authenticated identity.
func RequireUser(a Authorizer) func(http.Handler) http.Handler {
	return Guard(a, goContacts.RoleUser)
}

// RequireAdmin admits identities with the elevated role.
func RequireAdmin(a Authorizer) func(http.Handler) http.Handler {
	return Guard(a, goContacts.RoleAdmin)
}

// RateLimit counts requests per client address and route. Limiter backend
// failures are handled by the Allower.
func RateLimit(l Allower, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(r.Context(), l, route) {
				writeStatus(w, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP stores the request's remote address in its context for rate
// limiting and audit events. Forwarding headers are not trusted.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goContacts.WithClientIP(r.Context(), remoteHost(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorize returns the principal, or nil and the status to answer with.
func authorize(ctx context.Context, a Authorizer, header string, min goContacts.Role) (*goContacts.Principal, int) {
	if a == nil {
		return nil, http.StatusUnauthorized
	}
	token, ok := BearerToken(header)
	if !ok {
		return nil, http.StatusUnauthorized
	}
	p, err := a.Authorize(ctx, token, min)
	switch {
	case err == nil:
		return p, http.StatusOK
	case errors.Is(err, goContacts.ErrForbidden):
		return nil, http.StatusForbidden
	case errors.Is(err, goContacts.ErrUnauthenticated):
		return nil, http.StatusUnauthorized
	default:
		return nil, http.StatusInternalServerError
	}
}

func allowed(ctx context.Context, l Allower, route string) bool {
	if l == nil {
		return true
	}
	ip := goContacts.ClientIPFromContext(ctx)
	if ip == "" {
		ip = "unknown"
	}
	ok, err := l.Allow(ctx, ip+":"+route)
	return err == nil && ok
}

func writeStatus(w http.ResponseWriter, status int) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
