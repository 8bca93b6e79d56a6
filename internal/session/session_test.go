package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/scribe/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
)

const testClaim = "https://string-scribe.com/roles"

type memoryStore struct {
	mu    sync.Mutex
	token *oauth2.Token
	saves int
}

func (m *memoryStore) LoadToken(context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryStore) SaveToken(_ context.Context, token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.saves++
	return nil
}

func (m *memoryStore) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	return nil
}

func signIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return raw
}

func tokenWithID(access, id string, expiry time.Time) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer", Expiry: expiry}
	return tok.WithExtra(map[string]any{"id_token": id})
}

func newTestProvider(t *testing.T, store TokenStore) *OIDCProvider {
	t.Helper()
	p, err := NewOIDCProvider(OIDCConfig{
		Domain:       "https://tenant.example.com/",
		ClientID:     "client-1",
		ClaimKey:     testClaim,
		RedirectURL:  "http://localhost:3000/callback",
		CallbackAddr: "localhost:3000",
	}, store, nil)
	if err != nil {
		t.Fatalf("NewOIDCProvider() error = %v", err)
	}
	p.SetBrowser(func(string) error { return nil })
	return p
}

func TestIdentityFromClaims(t *testing.T) {
	tt := []struct {
		name    string
		claims  map[string]any
		want    *Identity
		wantErr bool
	}{
		{
			name:   "roles as any slice",
			claims: map[string]any{"sub": "auth0|1", "name": "Ada", "email": "ada@example.com", testClaim: []any{"pro", 7}},
			want:   &Identity{SubjectID: "auth0|1", DisplayName: "Ada", Email: "ada@example.com", Roles: []string{"pro"}},
		},
		{
			name:   "single role string",
			claims: map[string]any{"sub": "s", "nickname": "ada", testClaim: "pro"},
			want:   &Identity{SubjectID: "s", DisplayName: "ada", Roles: []string{"pro"}},
		},
		{
			name:   "missing roles claim",
			claims: map[string]any{"sub": "s", "email": "e@example.com"},
			want:   &Identity{SubjectID: "s", DisplayName: "e@example.com", Email: "e@example.com"},
		},
		{
			name:   "mistyped roles claim",
			claims: map[string]any{"sub": "s", testClaim: 42},
			want:   &Identity{SubjectID: "s"},
		},
		{name: "missing subject", claims: map[string]any{"name": "x"}, wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IdentityFromClaims(tc.claims, testClaim)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrAuthFailed) {
					t.Errorf("expected ErrAuthFailed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("identity mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSessionSubjectID(t *testing.T) {
	id := &Identity{SubjectID: "abc"}
	if got := Authenticated(id).SubjectID(); got != "abc" {
		t.Errorf("SubjectID() = %q", got)
	}
	if got := Anonymous.SubjectID(); got != "" {
		t.Errorf("anonymous SubjectID() = %q", got)
	}
	if got := (Session{Identity: id, IsAuthenticated: true, IsLoading: true}).SubjectID(); got != "" {
		t.Errorf("loading SubjectID() = %q", got)
	}
	if (*Identity)(nil).HasRole("pro") {
		t.Error("nil identity should have no roles")
	}
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	p := NewStaticProvider(&Identity{SubjectID: "u"})

	s, _ := p.Session(ctx)
	if !s.IsAuthenticated {
		t.Fatal("expected authenticated session")
	}

	_ = p.Logout(ctx)
	if s, _ = p.Session(ctx); s.IsAuthenticated {
		t.Error("expected anonymous after logout")
	}

	if err := NewStaticProvider(nil).Login(ctx); !errors.Is(err, shared.ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestOIDCProviderConfig(t *testing.T) {
	if _, err := NewOIDCProvider(OIDCConfig{ClientID: "c"}, &memoryStore{}, nil); !errors.Is(err, shared.ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}

	p := newTestProvider(t, &memoryStore{})
	if got := p.OAuthConfig().Endpoint.AuthURL; got != "https://tenant.example.com/authorize" {
		t.Errorf("AuthURL = %q", got)
	}

	u, err := url.Parse(p.LogoutURL())
	if err != nil {
		t.Fatalf("LogoutURL() unparsable: %v", err)
	}
	if u.Path != "/v2/logout" || u.Query().Get("client_id") != "client-1" || u.Query().Get("returnTo") != "http://localhost:3000" {
		t.Errorf("unexpected logout url %s", u)
	}
}

func TestOIDCProviderSession(t *testing.T) {
	ctx := context.Background()

	t.Run("signed out without token", func(t *testing.T) {
		s, err := newTestProvider(t, &memoryStore{}).Session(ctx)
		if err != nil || s.IsAuthenticated {
			t.Errorf("expected anonymous session, got %+v, %v", s, err)
		}
	})

	t.Run("derives identity from id token", func(t *testing.T) {
		id := signIDToken(t, jwt.MapClaims{"sub": "auth0|7", "name": "Grace", testClaim: []string{"pro"}})
		store := &memoryStore{token: tokenWithID("at", id, time.Now().Add(time.Hour))}

		s, err := newTestProvider(t, store).Session(ctx)
		if err != nil {
			t.Fatalf("Session() error = %v", err)
		}
		if !s.IsAuthenticated || s.SubjectID() != "auth0|7" || !s.Identity.HasRole("pro") {
			t.Errorf("unexpected session %+v", s)
		}
	})

	t.Run("expired without refresh token", func(t *testing.T) {
		id := signIDToken(t, jwt.MapClaims{"sub": "x"})
		store := &memoryStore{token: tokenWithID("at", id, time.Now().Add(-time.Hour))}

		s, _ := newTestProvider(t, store).Session(ctx)
		if s.IsAuthenticated {
			t.Error("expected anonymous session for expired token")
		}
	})

	t.Run("refreshes expired token and keeps id token", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
		}))
		defer ts.Close()

		id := signIDToken(t, jwt.MapClaims{"sub": "x"})
		stale := tokenWithID("stale", id, time.Now().Add(-time.Hour))
		stale.RefreshToken = "rt"
		store := &memoryStore{token: stale}

		p := newTestProvider(t, store)
		p.OAuthConfig().Endpoint.TokenURL = ts.URL

		s, err := p.Session(ctx)
		if err != nil || !s.IsAuthenticated {
			t.Fatalf("expected refreshed session, got %+v, %v", s, err)
		}
		if store.token.AccessToken != "fresh" || idToken(store.token) != id {
			t.Errorf("stored token not refreshed correctly: %+v", store.token)
		}
		if got := p.AccessToken(ctx); got != "fresh" {
			t.Errorf("AccessToken() = %q", got)
		}
	})
}

func TestOIDCProviderLogin(t *testing.T) {
	ctx := context.Background()
	id := signIDToken(t, jwt.MapClaims{"sub": "auth0|9"})

	t.Run("stores token and reports loading while in flight", func(t *testing.T) {
		store := &memoryStore{}
		p := newTestProvider(t, store)

		var during Session
		p.SetAuthorizer(func(ctx context.Context, config *oauth2.Config, authURL, state string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
			during, _ = p.Session(ctx)
			u, _ := url.Parse(authURL)
			if u.Query().Get("code_challenge_method") != "S256" || u.Query().Get("state") != state {
				t.Errorf("auth url missing PKCE or state: %s", authURL)
			}
			return tokenWithID("at", id, time.Now().Add(time.Hour)), nil
		})

		if err := p.Login(ctx); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if !during.IsLoading {
			t.Error("expected loading session during login")
		}
		s, _ := p.Session(ctx)
		if s.SubjectID() != "auth0|9" {
			t.Errorf("SubjectID() = %q", s.SubjectID())
		}
	})

	t.Run("rejects token without id token", func(t *testing.T) {
		store := &memoryStore{}
		p := newTestProvider(t, store)
		p.SetAuthorizer(func(context.Context, *oauth2.Config, string, string, ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "at"}, nil
		})

		if err := p.Login(ctx); !errors.Is(err, shared.ErrNoIDToken) {
			t.Errorf("expected ErrNoIDToken, got %v", err)
		}
		if store.saves != 0 {
			t.Error("token should not be saved")
		}
	})

	t.Run("logout clears token and opens logout page", func(t *testing.T) {
		store := &memoryStore{token: tokenWithID("at", id, time.Now().Add(time.Hour))}
		p := newTestProvider(t, store)

		var opened string
		p.SetBrowser(func(u string) error { opened = u; return nil })

		if err := p.Logout(ctx); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if store.token != nil {
			t.Error("expected token to be cleared")
		}
		if opened != p.LogoutURL() {
			t.Errorf("opened %q", opened)
		}
	})
}
