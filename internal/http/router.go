package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"polls-service/internal/domain/poll"
	"polls-service/internal/domain/user"
	"polls-service/internal/domain/vote"
	"polls-service/internal/platform/apperr"
	jwtpkg "polls-service/internal/platform/jwt"
	"polls-service/internal/worker"
)

// Options tunes the router; zero values fall back to the defaults below.
type Options struct {
	TokenTTL          time.Duration
	CORSOrigin        string
	APIRatePer15m     int
	VoteRatePerMinute int
	CreateRatePer15m  int
	AuthRatePer15m    int
}

func (o Options) withDefaults() Options {
	if o.TokenTTL <= 0 {
		o.TokenTTL = 24 * time.Hour
	}
	if o.CORSOrigin == "" {
		o.CORSOrigin = "*"
	}
	if o.APIRatePer15m <= 0 {
		o.APIRatePer15m = 100
	}
	if o.VoteRatePerMinute <= 0 {
		o.VoteRatePerMinute = 10
	}
	if o.CreateRatePer15m <= 0 {
		o.CreateRatePer15m = 20
	}
	if o.AuthRatePer15m <= 0 {
		o.AuthRatePer15m = 5
	}
	return o
}

type Handler struct {
	userSvc  *user.Service
	pollSvc  *poll.Service
	voteSvc  *vote.Service
	jwtMgr   *jwtpkg.Manager
	voteCh   chan<- worker.VoteEvent
	db       *sql.DB
	tokenTTL time.Duration
}

func NewRouter(
	userSvc *user.Service,
	pollSvc *poll.Service,
	voteSvc *vote.Service,
	jwtMgr *jwtpkg.Manager,
	voteCh chan<- worker.VoteEvent,
	db *sql.DB,
	opts Options,
) http.Handler {
	opts = opts.withDefaults()
	h := &Handler{
		userSvc:  userSvc,
		pollSvc:  pollSvc,
		voteSvc:  voteSvc,
		jwtMgr:   jwtMgr,
		voteCh:   voteCh,
		db:       db,
		tokenTTL: opts.TokenTTL,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(CORSMiddleware(opts.CORSOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, apperr.NotFound("not_found", "route not found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, apperr.MethodNotAllowed("method_not_allowed", "method not allowed", nil))
	})

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	apiLimit := RateLimit("api", opts.APIRatePer15m, 15*time.Minute)
	voteLimit := RateLimit("vote", opts.VoteRatePerMinute, time.Minute)
	createLimit := RateLimit("create_poll", opts.CreateRatePer15m, 15*time.Minute)
	authLimit := RateLimit("auth", opts.AuthRatePer15m, 15*time.Minute)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiLimit)

		r.With(authLimit).Post("/auth/register", h.handleRegister)
		r.With(authLimit).Post("/auth/login", h.handleLogin)

		r.Get("/polls", h.handleListPolls)
		r.Get("/polls/{id}", h.handleGetPoll)
		r.Get("/polls/{id}/results", h.handlePollResults)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtMgr))

			r.With(createLimit).Post("/polls", h.handleCreatePoll)
			r.With(voteLimit).Post("/polls/{id}/vote", h.handleVote)
			r.Get("/polls/{id}/vote", h.handleVoteStatus)
			r.Delete("/polls/{id}", h.handleDeletePoll)
			r.Get("/me", h.handleMe)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(user.RoleAdmin))
				r.Get("/users", h.handleListUsers)
				r.Patch("/users/{id}/role", h.handleUpdateUserRole)
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

// decodeJSON rejects unknown fields so typos in request bodies surface as 400s.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// @Summary     Liveness probe
// @Tags        system
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// @Summary     Readiness probe
// @Tags        system
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  map[string]string  "database not ready"
// @Router      /ready [get]
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		errorResponse(w, apperr.Unavailable("db_unavailable", "database not configured", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		errorResponse(w, apperr.Unavailable("db_unavailable", "database not ready", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
