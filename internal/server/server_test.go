package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, wantVerifier string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if got := r.PostForm.Get("code_verifier"); got != wantVerifier {
			t.Errorf("code_verifier = %q, want %q", got, wantVerifier)
		}
		if got := r.PostForm.Get("code"); got != "abc" {
			t.Errorf("code = %q, want abc", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"header.payload.sig"}`))
	}))
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges code with verifier", func(t *testing.T) {
		ts := tokenServer(t, "verifier-123")
		defer ts.Close()

		config := &oauth2.Config{ClientID: "client", Endpoint: oauth2.Endpoint{TokenURL: ts.URL, AuthStyle: oauth2.AuthStyleInParams}}
		h := NewOAuthHandler(config, "state-1", oauth2.VerifierOption("verifier-123"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error %v", result.Error())
		}
		if result.Token.AccessToken != "at" {
			t.Errorf("access token = %q", result.Token.AccessToken)
		}
		if id, _ := result.Token.Extra("id_token").(string); id != "header.payload.sig" {
			t.Errorf("id_token extra = %q", id)
		}
	})

	t.Run("rejects state mismatch", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "expected")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("reports provider error", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied&error_description=nope", nil))

		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("processes a single callback", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=bad", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("second callback status = %d, want 400", rec.Code)
		}
	})
}

func TestCallbackRouter(t *testing.T) {
	t.Run("method patterns", func(t *testing.T) {
		r := NewCallbackRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST status = %d, want 405", rec.Code)
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("GET body = %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("unknown path status = %d, want 404", rec.Code)
		}
	})

	t.Run("mounts handler routes", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "s")
		r := NewCallbackRouter()
		r.Mount(h)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=wrong", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected state error from mounted handler")
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, req)
				})
			}
		}

		r := NewCallbackRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("middleware order = %v", order)
		}
	})

	t.Run("recover and log", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		r := NewCallbackRouter()
		r.Use(RequestLogger(logger), Recover(logger))
		r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
		if !strings.Contains(buf.String(), "panic in handler") || !strings.Contains(buf.String(), "status=500") {
			t.Errorf("unexpected log output %q", buf.String())
		}
	})
}

func TestCallbackServer(t *testing.T) {
	t.Run("reports listen errors", func(t *testing.T) {
		s := NewCallbackServer("127.0.0.1:99999", NewCallbackRouter(), log.New(io.Discard))
		s.Start()
		defer s.Shutdown()

		select {
		case err := <-s.Errors():
			if err == nil {
				t.Error("expected listen error")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no listen error reported")
		}
	})
}
