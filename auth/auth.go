// Package auth authenticates API callers against configured accounts and
// gates edits by role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Authenticator verifies credentials.
type Authenticator struct {
	users     map[string]User
	anonymous Role
}

// New builds an Authenticator from validated configuration.
func New(conf Conf) (*Authenticator, error) {
	conf.SetDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	a := &Authenticator{users: make(map[string]User, len(conf.Users)), anonymous: conf.Anonymous}
	for _, u := range conf.Users {
		a.users[u.Name] = u
	}
	return a, nil
}

// Open reports whether no accounts are configured.
func (a *Authenticator) Open() bool { return len(a.users) == 0 }

// Authenticate checks name and password and returns the user's role.
func (a *Authenticator) Authenticate(name, password string) (Role, error) {
	u, ok := a.users[name]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return u.Role, nil
}

// HashPassword returns the bcrypt hash to store in configuration.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

type ctxKey struct{}

// Principal identifies the caller of a request.
type Principal struct {
	Name string
	Role Role
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the caller stored by Middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Middleware resolves the caller from HTTP basic credentials. Requests
// without credentials get the anonymous role when no accounts exist and are
// rejected otherwise.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, password, ok := r.BasicAuth()
		if !ok {
			if !a.Open() {
				w.Header().Set("WWW-Authenticate", `Basic realm="microgrid"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{Role: a.anonymous})))
			return
		}
		role, err := a.Authenticate(name, password)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{Name: name, Role: role})))
	})
}

// RequireEdit rejects callers whose role cannot change the simulation.
func RequireEdit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok || !p.Role.CanEdit() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
