package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	discussionservice "altvote/contexts/polling/discussion-service"
	pollservice "altvote/contexts/polling/poll-service"
	votingengine "altvote/contexts/polling/voting-engine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "altvote/internal/platform/httpserver/docs"
)

type Options struct {
	Addr               string
	Auth               Authenticator
	VoteRateLimitRPS   float64
	VoteRateLimitBurst int
	EnableSwagger      bool
	Logger             *slog.Logger
}

type Server struct {
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	addr       string
	auth       Authenticator
	limiter    *userLimiter
	swagger    bool
	polls      pollservice.Module
	votes      votingengine.Module
	discussion discussionservice.Module
}

func New(
	polls pollservice.Module,
	votes votingengine.Module,
	discussion discussionservice.Module,
	opts Options,
) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger,
		addr:       addr,
		auth:       opts.Auth,
		limiter:    newUserLimiter(opts.VoteRateLimitRPS, opts.VoteRateLimitBurst),
		swagger:    opts.EnableSwagger,
		polls:      polls,
		votes:      votes,
		discussion: discussion,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.swagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/polls", s.handleListPolls)
		r.Get("/polls/{poll_id}", s.handleGetPoll)
		r.Get("/polls/{poll_id}/results", s.handlePollResults)
		r.Get("/polls/{poll_id}/comments", s.handleListComments)
		r.Get("/categories", s.handleListCategories)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/polls", s.handleCreatePoll)
			r.Put("/polls/{poll_id}", s.handleUpdatePoll)
			r.Delete("/polls/{poll_id}", s.handleDeletePoll)
			r.Post("/polls/{poll_id}/confirm", s.handleConfirmPoll)
			r.Post("/categories", s.handleCreateCategory)

			r.Get("/polls/{poll_id}/votes/me", s.handleMyVotes)

			r.Post("/polls/{poll_id}/comments", s.handleCreateComment)
			r.Put("/comments/{comment_id}", s.handleUpdateComment)
			r.Delete("/comments/{comment_id}", s.handleDeleteComment)
			r.Get("/comments/{comment_id}/reaction", s.handleReactionState)

			r.Group(func(r chi.Router) {
				r.Use(s.limiter.Middleware)

				r.Post("/polls/{poll_id}/votes/simple", s.handleSubmitSimpleVote)
				r.Post("/polls/{poll_id}/votes/ballot", s.handleSubmitBallot)
				r.Post("/polls/{poll_id}/votes/withdraw", s.handleWithdrawVotes)
				r.Post("/comments/{comment_id}/like", s.handleLikeComment)
				r.Post("/comments/{comment_id}/dislike", s.handleDislikeComment)
			})
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request completed",
			"event", "http_request_completed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func principal(r *http.Request) Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
