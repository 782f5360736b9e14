// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package status serves the metrics and the health of the bridge over HTTP.
// Other components (such as the simulated network) can mount their handlers
// on the same server.
package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ShutdownTimeout is the time the server waits for open requests when closing
var ShutdownTimeout = 5 * time.Second

// Server is the status server
type Server struct {
	ctx     log.Interface
	mux     *http.ServeMux
	started time.Time

	mu         sync.RWMutex
	accessKeys []string
	ready      <-chan struct{}
	server     *http.Server
}

// New returns a new status Server
func New(ctx log.Interface) *Server {
	s := &Server{
		ctx:     ctx.WithField("Component", "Status"),
		mux:     http.NewServeMux(),
		started: time.Now(),
	}
	s.mux.Handle("/metrics", s.authorize(promhttp.Handler()))
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// AddAccessKey adds an access key for clients of the metrics endpoint. When
// no keys are added, the metrics are public.
func (s *Server) AddAccessKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessKeys = append(s.accessKeys, key)
}

// SetReady sets the channel that is closed when the bridge is ready
func (s *Server) SetReady(ready <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Handle registers a handler on the server
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.accessKeys) == 0 {
		return true
	}
	key := strings.TrimPrefix(r.Header.Get("Authorization"), "Key ")
	for _, allowed := range s.accessKeys {
		if key == allowed {
			return true
		}
	}
	return false
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			http.Error(w, "Not authenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type health struct {
	Ready  bool   `json:"ready"`
	Uptime string `json:"uptime"`
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	if ready == nil {
		return false
	}
	select {
	case <-ready:
		return true
	default:
		return false
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := health{
		Ready:  s.isReady(),
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	if !res.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(res)
}

// Listen starts serving on the given address. It returns once the listener is
// open; the server runs until Close is called.
func (s *Server) Listen(address string) (net.Addr, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	server := &http.Server{Handler: s.mux}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()
	s.ctx.WithField("Address", lis.Addr().String()).Info("Starting status server")
	go func() {
		if err := server.Serve(lis); err != nil && err != http.ErrServerClosed {
			s.ctx.WithError(err).Warn("Status server stopped")
		}
	}()
	return lis.Addr(), nil
}

// Close stops the server
func (s *Server) Close() error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
