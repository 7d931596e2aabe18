// Package api exposes the orchestrator over HTTP and a websocket channel.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/orchestrator"
	"github.com/rcliao/discharge-care/internal/patient"
)

// Version is reported by the root endpoint.
const Version = "2.0.0"

// Counter reports the size of a loaded resource.
type Counter interface {
	Len() int
}

// Server serves the chat API.
type Server struct {
	orch     *orchestrator.Orchestrator
	patients patient.Lookup
	index    Counter
	logger   *log.Logger
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithIndex reports the knowledge index size on /health.
func WithIndex(c Counter) Option { return func(s *Server) { s.index = c } }

func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// New wires the routes.
func New(orch *orchestrator.Orchestrator, patients patient.Lookup, opts ...Option) *Server {
	s := &Server{orch: orch, patients: patients, logger: log.Default()}
	for _, o := range opts {
		o(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/patients/{name}", s.handlePatient)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", s.handleChat(""))
		r.Post("/receptionist", s.handleChat(model.AgentReceptionist))
		r.Post("/clinical", s.handleChat(model.AgentClinical))
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Delete("/", s.handleClearSessions)
		r.Delete("/{id}", s.handleDeleteSession)
	})
	r.Delete("/session/{id}", s.handleDeleteSession)

	r.Get("/ws", s.handleWebSocket)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, errorBody{Error: msg, Detail: detail})
}
