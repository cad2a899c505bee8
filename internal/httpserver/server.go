// Package httpserver builds the HTTP pipeline: CORS, JWT bearer
// authentication, fault recovery, and the host's own endpoints. It runs
// only after the registry is frozen and all startup scripts have executed.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/magicd/internal/faults"
	"github.com/vk/magicd/internal/hlparse"
	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
)

// Config carries the slice of application configuration the server needs.
type Config struct {
	ListenAddr     string
	AuthSecret     string
	AllowedOrigins []string
}

// Server serves the host's HTTP surface.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	registry *registry.Registry
	resolver *faults.Resolver
	parser   hlparse.Parser
}

// New creates a Server from its collaborators.
func New(cfg Config, logger *slog.Logger, reg *registry.Registry, resolver *faults.Resolver, parser hlparse.Parser) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		resolver: resolver,
		parser:   parser,
	}
}

// Handler builds the full middleware chain around the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/signal", s.recovered(s.handleSignal))

	auth := NewAuth(s.cfg.AuthSecret, s.logger, []string{"/health"})
	cors := NewCORS(s.cfg.AllowedOrigins)

	return cors.Handler(auth.Handler(mux))
}

// ListenAndServe blocks serving requests until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	s.logger.Info("HTTP server starting.", "address", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// erringHandler is a route handler that may fail. Failures are shaped into
// a response by the faults resolver.
type erringHandler func(w http.ResponseWriter, r *http.Request) error

// recovered wraps a route handler with the fault barrier: returned errors
// and panics both go through the custom exception-handler lookup.
func (s *Server) recovered(h erringHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.respondFault(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		if err := h(w, r); err != nil {
			s.respondFault(w, r, err)
		}
	}
}

func (s *Server) respondFault(w http.ResponseWriter, r *http.Request, err error) {
	payload, status := s.resolver.Resolve(r.Context(), r.URL.Path, err)
	s.logger.Error("Request failed.", "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, payload)
}

// handleHealth reports liveness and the registry size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"slots":  len(s.registry.Slots()),
	})
}

// handleSignal parses the request body as a script and dispatches it
// through the registry, awaited. Requires the root role when auth is on.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return &faults.Fault{Message: "method not allowed", Status: http.StatusMethodNotAllowed, Public: true}
	}
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.Role != "root" {
		return &faults.Fault{Message: "root role required", Status: http.StatusForbidden, Public: true}
	}

	src, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}

	tree, err := s.parser.Parse("request", src)
	if err != nil {
		return &faults.Fault{Message: err.Error(), Status: http.StatusBadRequest, Public: true}
	}

	if err := s.registry.Signal(r.Context(), "evaluate", tree); err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, treeResult(tree))
	return nil
}

// treeResult converts whatever the script left behind into a JSON friendly
// shape: leaf nodes become their value, inner nodes become objects.
func treeResult(node *lambda.Node) any {
	if len(node.Children) == 0 {
		native, err := lambda.ValueToGo(node.Value)
		if err != nil {
			return nil
		}
		return native
	}
	result := make(map[string]any, len(node.Children))
	for _, child := range node.Children {
		result[child.Name] = treeResult(child)
	}
	return result
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
