package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"kratio/internal/event"
	"kratio/internal/logging"
	"kratio/internal/metrics"
	"kratio/internal/pipeline"
	"kratio/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Options wires the result stream server.
type Options struct {
	Bus            *event.Bus[pipeline.Result]
	Metrics        *metrics.Registry
	Logger         *logging.Logger
	AllowedOrigins []string
	// Backlog is the number of recent results sent to a new websocket client.
	Backlog int
}

// Server exposes analysis results over HTTP and websockets.
type Server struct {
	options Options
	logger  *logging.Logger

	mu     sync.RWMutex
	latest map[string]pipeline.Result
}

func NewServer(options Options) *Server {
	return &Server{
		options: options,
		logger:  options.Logger.With(map[string]string{"component": "api"}),
		latest:  make(map[string]pipeline.Result),
	}
}

// Track records the latest result per path until ctx ends or the bus closes.
func (server *Server) Track(ctx context.Context) {
	results, cancel := server.options.Bus.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case result, ok := <-results:
				if !ok {
					return
				}
				server.remember(result)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (server *Server) remember(result pipeline.Result) {
	server.mu.Lock()
	server.latest[result.Path] = result
	server.mu.Unlock()
}

// Latest returns the newest result per path, sorted by path.
func (server *Server) Latest() []pipeline.Result {
	server.mu.RLock()
	results := make([]pipeline.Result, 0, len(server.latest))
	for _, result := range server.latest {
		results = append(results, result)
	}
	server.mu.RUnlock()
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results
}

// Handler returns the route table.
func (server *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/results", server.streamResults)
	mux.Handle("/api/results", restHandler(server.handleResults))
	mux.Handle("/healthz", restHandler(server.handleHealth))
	mux.Handle("/metrics", server.options.Metrics.Handler())
	return accessLog(server.logger, mux)
}

func (server *Server) handleResults(w http.ResponseWriter, r *http.Request) *apiError {
	if failure := allowOnly(w, r, http.MethodGet); failure != nil {
		return failure
	}
	writeJSON(w, http.StatusOK, server.Latest())
	return nil
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (server *Server) handleHealth(w http.ResponseWriter, r *http.Request) *apiError {
	if failure := allowOnly(w, r, http.MethodGet); failure != nil {
		return failure
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: version.Version})
	return nil
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (server *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx, listener)
}

func (server *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.Track(ctx)

	errs := make(chan error, 1)
	go func() {
		errs <- httpServer.Serve(listener)
	}()
	server.logger.Info("result stream listening", map[string]string{"addr": listener.Addr().String()})

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		server.logger.Warn("result stream shutdown failed", map[string]string{"error": err.Error()})
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
