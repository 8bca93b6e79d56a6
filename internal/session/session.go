// package session models the identity provider's authentication state
package session

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/scribe/internal/shared"
)

// Identity is an immutable snapshot of the signed-in user as reported by the identity provider.
type Identity struct {
	SubjectID   string
	DisplayName string
	Email       string
	PictureURL  string
	Roles       []string
}

// HasRole reports whether role is among the identity's roles. Safe on a nil receiver.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, role)
}

// Session is the authentication state derived from the provider on every read.
//
// It is never persisted by the client; only the provider's tokens are.
type Session struct {
	Identity        *Identity
	IsLoading       bool
	IsAuthenticated bool
}

// Anonymous is the session of a signed-out user.
var Anonymous = Session{}

// Loading is the session reported while a login flow is in flight.
var Loading = Session{IsLoading: true}

// Authenticated builds a signed-in session for identity.
func Authenticated(identity *Identity) Session {
	return Session{Identity: identity, IsAuthenticated: identity != nil}
}

// SubjectID returns the authenticated subject id, or "" when signed out or still loading.
func (s Session) SubjectID() string {
	if s.IsLoading || !s.IsAuthenticated || s.Identity == nil {
		return ""
	}
	return s.Identity.SubjectID
}

// Provider supplies authentication state and the login/logout actions.
//
// Implementations are injected into the components that need them; there is no package-level session.
type Provider interface {
	// Session re-derives the current session from the provider's stored credentials.
	Session(ctx context.Context) (Session, error)
	// Login runs the provider's interactive sign-in flow.
	Login(ctx context.Context) error
	// Logout discards local credentials and ends the provider session.
	Logout(ctx context.Context) error
}

// IdentityFromClaims maps ID token claims onto an [Identity].
//
// Roles are read from the namespaced claimKey. A missing, empty or mistyped roles claim yields no roles.
func IdentityFromClaims(claims map[string]any, claimKey string) (*Identity, error) {
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("%w: token has no subject", shared.ErrAuthFailed)
	}

	identity := &Identity{
		SubjectID:  sub,
		Email:      stringClaim(claims, "email"),
		PictureURL: stringClaim(claims, "picture"),
		Roles:      rolesClaim(claims[claimKey]),
	}

	identity.DisplayName = stringClaim(claims, "name")
	if identity.DisplayName == "" {
		identity.DisplayName = stringClaim(claims, "nickname")
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.Email
	}

	return identity, nil
}

func stringClaim(claims map[string]any, key string) string {
	v, _ := claims[key].(string)
	return v
}

func rolesClaim(v any) []string {
	var roles []string
	switch raw := v.(type) {
	case []string:
		roles = append(roles, raw...)
	case []any:
		for _, r := range raw {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	case string:
		if raw != "" {
			roles = append(roles, raw)
		}
	}
	return roles
}

// StaticProvider reports a fixed session. Login and Logout swap between the configured identity and [Anonymous].
type StaticProvider struct {
	identity *Identity
	current  Session
}

// NewStaticProvider returns a provider that is signed in as identity, or signed out when identity is nil.
func NewStaticProvider(identity *Identity) *StaticProvider {
	p := &StaticProvider{identity: identity, current: Anonymous}
	if identity != nil {
		p.current = Authenticated(identity)
	}
	return p
}

func (p *StaticProvider) Session(ctx context.Context) (Session, error) {
	return p.current, nil
}

func (p *StaticProvider) Login(ctx context.Context) error {
	if p.identity == nil {
		return fmt.Errorf("%w: no identity configured", shared.ErrAuthFailed)
	}
	p.current = Authenticated(p.identity)
	return nil
}

func (p *StaticProvider) Logout(ctx context.Context) error {
	p.current = Anonymous
	return nil
}

var _ Provider = (*StaticProvider)(nil)
