package entitlement

import (
	"testing"

	"github.com/desertthunder/scribe/internal/session"
)

func TestIsPro(t *testing.T) {
	tt := []struct {
		name     string
		identity *session.Identity
		want     bool
	}{
		{name: "nil identity", identity: nil, want: false},
		{name: "no roles", identity: &session.Identity{SubjectID: "a"}, want: false},
		{name: "empty roles", identity: &session.Identity{SubjectID: "a", Roles: []string{}}, want: false},
		{name: "other roles", identity: &session.Identity{SubjectID: "a", Roles: []string{"admin", "beta"}}, want: false},
		{name: "case differs", identity: &session.Identity{SubjectID: "a", Roles: []string{"Pro"}}, want: false},
		{name: "only pro", identity: &session.Identity{SubjectID: "a", Roles: []string{"pro"}}, want: true},
		{name: "pro among others", identity: &session.Identity{SubjectID: "a", Roles: []string{"admin", "pro", "beta"}}, want: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPro(tc.identity); got != tc.want {
				t.Errorf("IsPro() = %v, want %v", got, tc.want)
			}
			if got := IsPro(tc.identity); got != tc.want {
				t.Errorf("IsPro() not idempotent, second call = %v", got)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	pro := &session.Identity{SubjectID: "auth0|1", Roles: []string{"pro"}}
	free := &session.Identity{SubjectID: "auth0|2"}

	tt := []struct {
		name    string
		session session.Session
		want    Access
		header  string
	}{
		{name: "anonymous", session: session.Anonymous, want: Access{}, header: "false"},
		{name: "loading", session: session.Session{Identity: pro, IsAuthenticated: true, IsLoading: true}, want: Access{}, header: "false"},
		{name: "free", session: session.Authenticated(free), want: Access{Authenticated: true, SubjectID: "auth0|2"}, header: "false"},
		{name: "pro", session: session.Authenticated(pro), want: Access{Authenticated: true, Pro: true, SubjectID: "auth0|1"}, header: "true"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.session)
			if got != tc.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tc.want)
			}
			if got.Header() != tc.header {
				t.Errorf("Header() = %q, want %q", got.Header(), tc.header)
			}
		})
	}
}

func TestResolveFollowsIdentityChange(t *testing.T) {
	identity := session.Identity{SubjectID: "u"}
	before := Resolve(session.Authenticated(&identity))

	upgraded := identity
	upgraded.Roles = []string{"pro"}
	after := Resolve(session.Authenticated(&upgraded))

	if before.Pro || !after.Pro {
		t.Errorf("expected upgrade to be reflected, before=%+v after=%+v", before, after)
	}
	if before.Plan() != "Free Plan" || after.Plan() != "Pro Plan" {
		t.Errorf("unexpected plans %q, %q", before.Plan(), after.Plan())
	}
}
