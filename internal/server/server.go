// package server contains the router and handlers for the sign-in callback server
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const shutdownTimeout = 5 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// CallbackServer is the short-lived listener that receives the identity provider's redirect.
type CallbackServer struct {
	httpServer *http.Server
	errs       chan error
	logger     *log.Logger
}

// NewCallbackServer serves handler on addr once [CallbackServer.Start] is called.
func NewCallbackServer(addr string, handler http.Handler, logger *log.Logger) *CallbackServer {
	return &CallbackServer{
		httpServer: &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		errs:       make(chan error, 1),
		logger:     logger,
	}
}

// Start listens in the background. Listen failures are reported on [CallbackServer.Errors].
func (s *CallbackServer) Start() {
	go func() {
		s.logger.Info("waiting for login callback", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
}

func (s *CallbackServer) Errors() <-chan error {
	return s.errs
}

// Shutdown stops the listener, waiting briefly for the callback response to flush.
func (s *CallbackServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down callback server", "error", err)
	}
}
