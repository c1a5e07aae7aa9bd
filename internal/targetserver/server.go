// Package targetserver is a minimal stand-in for the configurations
// endpoint, used to try load runs locally and as a fixture in tests.
package targetserver

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultPath is the path the load driver posts to by default.
const DefaultPath = "/configurations"

// Options configures the handler.
type Options struct {
	// Path that accepts POST requests (default: /configurations)
	Path string

	// Latency is added before every response
	Latency time.Duration

	// FailEvery makes every Nth request answer 500; 0 disables failures
	FailEvery int64

	Logger *slog.Logger
}

// Server counts the requests it answers.
type Server struct {
	opts     Options
	mux      *http.ServeMux
	requests atomic.Int64
	failures atomic.Int64
}

// New creates a Server with the given options.
func New(opts Options) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{opts: opts, mux: http.NewServeMux()}
	s.mux.HandleFunc(opts.Path, s.handleConfigurations)
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "healthy")
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Requests returns the number of POST requests answered.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Failures returns the number of requests answered with 500.
func (s *Server) Failures() int64 {
	return s.failures.Load()
}

func (s *Server) handleConfigurations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	n := s.requests.Add(1)

	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return
		}
	}

	if s.opts.FailEvery > 0 && n%s.opts.FailEvery == 0 {
		s.failures.Add(1)
		s.opts.Logger.Debug("injected failure", "request", n)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"injected failure"}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"id":%d}`, n)
}

// NewHTTPServer wraps handler in an http.Server tuned for load testing.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
	}
}
