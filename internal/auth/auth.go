// Package auth carries the caller's identity through request contexts and
// decides who may change the catalog. Authentication itself happens upstream;
// a trusted proxy forwards the verified email in a header.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// DefaultHeader is the header oauth2-proxy style gateways use for the user's email.
const DefaultHeader = "X-Auth-Request-Email"

// Principal is the authenticated caller.
type Principal struct {
	Email string
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Email != ""
}

// Authorizer decides whether the caller in ctx may perform admin actions.
type Authorizer interface {
	IsAdmin(ctx context.Context) bool
}

// Allowlist grants admin rights to a fixed set of emails, compared
// case-insensitively.
type Allowlist struct {
	emails map[string]struct{}
}

// NewAllowlist builds an Allowlist. Blank entries are ignored.
func NewAllowlist(emails []string) *Allowlist {
	a := &Allowlist{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = normalize(e); e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

// IsAdmin reports whether the caller's email is on the list. Anonymous
// callers are never admins.
func (a *Allowlist) IsAdmin(ctx context.Context) bool {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return false
	}
	_, ok = a.emails[normalize(p.Email)]
	return ok
}

// Len returns the number of admin emails.
func (a *Allowlist) Len() int { return len(a.emails) }

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Middleware copies the email from header into the request context. Requests
// without the header pass through anonymously. An empty header name selects
// DefaultHeader.
func Middleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if email := strings.TrimSpace(r.Header.Get(header)); email != "" {
				r = r.WithContext(WithPrincipal(r.Context(), Principal{Email: email}))
			}
			next.ServeHTTP(w, r)
		})
	}
}
