// Package webui serves the administrative web API: session-authenticated JSON
// endpoints over the permission service, plus a start/stop lifecycle that is
// safe to drive from chat commands.
package webui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/keshon/server-warden/internal/permission"
)

// ErrPortInUse reports that the configured port is already bound by someone
// else. It is a normal, user-visible failure, not a crash.
var ErrPortInUse = errors.New("port already in use")

// ErrNotRunning reports a stop/status request against a stopped server.
var ErrNotRunning = errors.New("web UI is not running")

// ErrAlreadyRunning reports a start request against a running server.
var ErrAlreadyRunning = errors.New("web UI is already running")

// startPollTimeout bounds how long Start waits for the listener to answer.
const startPollTimeout = 10 * time.Second

// Server runs the admin web API on one host:port.
type Server struct {
	host   string
	port   int
	secret string
	svc    *permission.Service

	mu       sync.Mutex
	srv      *http.Server
	done     chan struct{}
	sessions *sessionSet
}

// New returns a stopped server.
func New(host string, port int, secret string, svc *permission.Service) *Server {
	return &Server{
		host:     host,
		port:     port,
		secret:   secret,
		svc:      svc,
		sessions: newSessionSet(),
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// DisplayHost returns a host suitable for showing in access URLs.
func (s *Server) DisplayHost() string {
	if s.host == "" || s.host == "0.0.0.0" {
		return "127.0.0.1"
	}
	return s.host
}

// Running reports whether the server is currently serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// Start binds the listener, serves in the background and polls the socket
// until it answers before reporting success. A port held by someone else
// yields ErrPortInUse. ctx bounds the startup wait only; the server keeps
// running after Start returns.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s", ErrPortInUse, s.Addr())
		}
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	srv := &http.Server{Handler: s.routes()}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERR] Web UI server exited: %v", err)
		}
	}()

	deadline := time.Now().Add(startPollTimeout)
	for {
		conn, err := net.DialTimeout("tcp", ln.Addr().String(), 250*time.Millisecond)
		if err == nil {
			conn.Close()
			s.srv = srv
			s.done = done
			log.Printf("[INFO] Web UI listening on http://%s:%d/", s.DisplayHost(), s.port)
			return nil
		}

		select {
		case <-done:
			return fmt.Errorf("web UI server died during startup")
		case <-ctx.Done():
			srv.Close()
			<-done
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}

		if time.Now().After(deadline) {
			srv.Close()
			<-done
			return fmt.Errorf("web UI did not start listening within %s", startPollTimeout)
		}
	}
}

// Stop requests graceful shutdown and waits for the serve goroutine to finish
// so a restart on the same port never races the old listener's teardown.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.done = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return ErrNotRunning
	}

	err := srv.Shutdown(ctx)
	<-done
	log.Printf("[INFO] Web UI stopped")
	return err
}
