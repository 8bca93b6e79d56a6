package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/shared"
	tu "github.com/desertthunder/scribe/internal/testing"
	"github.com/google/go-cmp/cmp"
)

func backendConfig(url string) shared.BackendConfig {
	return shared.BackendConfig{BaseURL: url, EntitlementHeader: DefaultProHeader}
}

func TestUploadFile(t *testing.T) {
	t.Run("sends multipart file with entitlement header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != UploadPath {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get(DefaultProHeader); got != "true" {
				t.Errorf("entitlement header = %q, want true", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
				t.Errorf("Authorization = %q", got)
			}

			file, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("FormFile() error = %v", err)
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			if string(data) != "RIFF" || header.Filename != "take.wav" || header.Header.Get("Content-Type") != "audio/wav" {
				t.Errorf("unexpected file part %q %q %q", data, header.Filename, header.Header.Get("Content-Type"))
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"mxml":"<score-partwise/>","midi":"TVRoZA=="}`))
		}))
		defer server.Close()

		svc := NewTranscriptionService(backendConfig(server.URL), nil, nil)
		svc.SetTokenFunc(func(context.Context) string { return "token-1" })

		result, err := svc.UploadFile(context.Background(), AudioFile{
			Name: "take.wav", ContentType: "audio/wav", Body: strings.NewReader("RIFF"),
		}, entitlement.Access{Authenticated: true, Pro: true, SubjectID: "u"})
		if err != nil {
			t.Fatalf("UploadFile() error = %v", err)
		}
		if result.NotationMarkup != "<score-partwise/>" || result.NoteEvents != "TVRoZA==" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("anonymous upload has no bearer token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Error("expected no Authorization header")
			}
			if got := r.Header.Get(DefaultProHeader); got != "false" {
				t.Errorf("entitlement header = %q, want false", got)
			}
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		svc := NewTranscriptionService(backendConfig(server.URL), nil, nil)
		svc.SetTokenFunc(func(context.Context) string { return "" })

		result, err := svc.UploadFile(context.Background(), AudioFile{Name: "a.mp3", Body: strings.NewReader("x")}, entitlement.Access{})
		if err != nil {
			t.Fatalf("UploadFile() error = %v", err)
		}
		if result.HasNotation() || result.HasNoteEvents() {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("requires a body", func(t *testing.T) {
		svc := NewTranscriptionService(backendConfig("http://unused"), nil, nil)
		if _, err := svc.UploadFile(context.Background(), AudioFile{Name: "a"}, entitlement.Access{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestUploadYouTube(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != UploadYouTubePath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		got := map[string]string{"url": r.FormValue("url"), "user_id": r.FormValue("user_id")}
		want := map[string]string{"url": "https://youtu.be/abc", "user_id": "auth0|1"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("form mismatch (-want +got):\n%s", diff)
		}
		_, _ = w.Write([]byte(`{"mxml":"<score/>"}`))
	}))
	defer server.Close()

	svc := NewTranscriptionService(backendConfig(server.URL), nil, nil)
	result, err := svc.UploadYouTube(context.Background(), "https://youtu.be/abc", "auth0|1", entitlement.Access{Authenticated: true, Pro: true, SubjectID: "auth0|1"})
	if err != nil {
		t.Fatalf("UploadYouTube() error = %v", err)
	}
	if !result.HasNotation() || result.HasNoteEvents() {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestStatusMapping(t *testing.T) {
	tt := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "quota", status: http.StatusTooManyRequests, body: `{"detail":"Rate limit exceeded"}`, want: shared.ErrQuotaExceeded},
		{name: "premium", status: http.StatusForbidden, want: shared.ErrPremiumRequired},
		{name: "server error", status: http.StatusInternalServerError, want: shared.ErrAPIRequest},
		{name: "bad request", status: http.StatusBadRequest, want: shared.ErrAPIRequest},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			svc := NewTranscriptionService(backendConfig(server.URL), nil, nil)
			_, err := svc.UploadYouTube(context.Background(), "u", "id", entitlement.Access{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}

			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tc.status {
				t.Errorf("expected StatusError with %d, got %v", tc.status, err)
			}
		})
	}

	t.Run("transport failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		svc := NewTranscriptionService(backendConfig("http://backend"), client, nil)

		_, err := svc.UploadYouTube(context.Background(), "u", "id", entitlement.Access{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("unreadable body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		svc := NewTranscriptionService(backendConfig("http://backend"), client, nil)

		if _, err := svc.UploadYouTube(context.Background(), "u", "id", entitlement.Access{}); err == nil {
			t.Error("expected read error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		svc := NewTranscriptionService(backendConfig(server.URL), nil, nil)
		if _, err := svc.UploadYouTube(context.Background(), "u", "id", entitlement.Access{}); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Run("returns redirect without following it", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != CheckoutPath {
				t.Errorf("unexpected path %s", r.URL.Path)
				return
			}
			if err := r.ParseForm(); err != nil || r.PostForm.Get("id") != "auth0|1" {
				t.Errorf("unexpected form %v, %v", r.PostForm, err)
			}
			http.Redirect(w, r, "https://checkout.example.com/c/pay/1", http.StatusSeeOther)
		}))
		defer server.Close()

		svc := NewTranscriptionService(backendConfig(server.URL), nil, nil)
		got, err := svc.CreateCheckoutSession(context.Background(), "auth0|1")
		if err != nil {
			t.Fatalf("CreateCheckoutSession() error = %v", err)
		}
		if got != "https://checkout.example.com/c/pay/1" {
			t.Errorf("location = %q", got)
		}
	})

	t.Run("requires subject", func(t *testing.T) {
		svc := NewTranscriptionService(backendConfig("http://unused"), nil, nil)
		if _, err := svc.CreateCheckoutSession(context.Background(), " "); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("no redirect", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		svc := NewTranscriptionService(backendConfig(server.URL), nil, nil)
		if _, err := svc.CreateCheckoutSession(context.Background(), "u"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestAPIServicePacing(t *testing.T) {
	transport := &tu.CountingTransport{Next: tu.NewMockRoundTripper(&http.Response{
		StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}")), Header: http.Header{},
	}, nil)}
	api := NewAPIService("http://backend/", &http.Client{Transport: transport}, 1, nil)

	if got := api.URL("/x"); got != "http://backend/x" {
		t.Errorf("URL() = %q", got)
	}

	req, _ := http.NewRequest(http.MethodGet, api.URL("/x"), nil)
	if _, err := api.Do(context.Background(), api.httpClient, req); err != nil {
		t.Fatalf("first Do() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ = http.NewRequest(http.MethodGet, api.URL("/x"), nil)
	if _, err := api.Do(ctx, api.httpClient, req); err == nil {
		t.Error("expected second request to be held back by the limiter")
	}
	if transport.Count() != 1 {
		t.Errorf("expected 1 request on the wire, got %d", transport.Count())
	}
	if reqs := transport.Requests(); len(reqs) == 1 && reqs[0].URL.Path != "/x" {
		t.Errorf("request path = %q, want /x", reqs[0].URL.Path)
	}
}
