// Package relay is a minimal mailbox relay speaking the polled message
// protocol: each endpoint id owns a FIFO mailbox, POST appends to it and GET
// pops from it. It is meant for local development and tests.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/1ureka/thetacast/internal/util"
)

const (
	maxMessageSize  = 256 * 1024
	maxMailboxDepth = 1024
)

// Server is the relay. Its zero value is not usable; call NewServer.
type Server struct {
	mu        sync.Mutex
	mailboxes map[string][][]byte

	listener net.Listener
	http     *http.Server
}

// NewServer creates a relay with empty mailboxes.
func NewServer() *Server {
	return &Server{mailboxes: make(map[string][][]byte)}
}

// Handler returns the HTTP handler serving /data/{id}.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /data/{id}", s.handlePost)
	mux.HandleFunc("GET /data/{id}", s.handleGet)
	mux.HandleFunc("OPTIONS /data/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return withCORS(mux)
}

// Start begins listening on addr (":0" picks a random port) and returns the
// bound address.
func (s *Server) Start(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start relay: %w", err)
	}
	s.listener = listener
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.LogError("relay stopped: %v", err)
		}
	}()

	return listener.Addr().String(), nil
}

// Close shuts the relay down, waiting up to ctx for in-flight requests.
func (s *Server) Close(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Pending returns the number of queued messages for id.
func (s *Server) Pending(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mailboxes[id])
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxMessageSize {
		http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "body is not JSON", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	box := s.mailboxes[id]
	if len(box) >= maxMailboxDepth {
		s.mu.Unlock()
		http.Error(w, "mailbox full", http.StatusServiceUnavailable)
		return
	}
	s.mailboxes[id] = append(box, body)
	depth := len(s.mailboxes[id])
	s.mu.Unlock()

	util.LogDebug("relay: queued message for %s (%d pending)", id, depth)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	box := s.mailboxes[id]
	if len(box) == 0 {
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	msg := box[0]
	box[0] = nil
	if len(box) == 1 {
		delete(s.mailboxes, id)
	} else {
		s.mailboxes[id] = box[1:]
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(msg)
}

// withCORS lets browser endpoints on other origins talk to the relay.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}
