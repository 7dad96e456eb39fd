package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"where2meet/internal/domain/poll"
	"where2meet/internal/domain/result"
	"where2meet/internal/domain/share"
	"where2meet/internal/domain/vote"
	"where2meet/internal/platform/apperr"
	jwtpkg "where2meet/internal/platform/jwt"
	"where2meet/internal/worker"
)

// Pinger reports storage readiness. nil means process-local storage.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	PollSvc  *poll.Service
	VoteSvc  *vote.Service
	Engine   *result.Engine
	ShareMgr *share.Manager
	JWTMgr   *jwtpkg.Manager
	VoteCh   chan<- worker.VoteEvent
	DB       Pinger
}

type Handler struct {
	pollSvc  *poll.Service
	voteSvc  *vote.Service
	engine   *result.Engine
	shareMgr *share.Manager
	voteCh   chan<- worker.VoteEvent
	db       Pinger
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		pollSvc:  d.PollSvc,
		voteSvc:  d.VoteSvc,
		engine:   d.Engine,
		shareMgr: d.ShareMgr,
		voteCh:   d.VoteCh,
		db:       d.DB,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.With(RateLimitByIP(rate.Every(time.Minute/30), 10)).Get("/access/{token}", h.handleAccess)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(d.JWTMgr))

		r.Get("/categories", h.handleCategories)

		r.Post("/polls", h.handleCreatePoll)
		r.Get("/polls", h.handleListPolls)
		r.Get("/polls/{id}", h.handleGetPoll)
		r.Patch("/polls/{id}", h.handleUpdatePoll)
		r.Post("/polls/{id}/close", h.handleClosePoll)
		r.Delete("/polls/{id}", h.handleDeletePoll)

		r.With(RateLimitByIP(rate.Every(time.Minute/10), 3)).Post("/polls/{id}/vote", h.handleVote)
		r.Get("/polls/{id}/results", h.handlePollResults)

		r.Post("/polls/{id}/share-token", h.handleIssueShareToken)
		r.Delete("/share-tokens/{token}", h.handleRevokeShareToken)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

// @Summary     Readiness probe
// @Tags        system
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  map[string]string
// @Router      /ready [get]
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "storage": "memory"})
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
