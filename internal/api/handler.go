// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-activity-feed/internal/catalog"
	"github-activity-feed/internal/feed"
	"github-activity-feed/internal/model"
)

// Handler is the container for API dependencies.
type Handler struct {
	feed    *feed.Engine
	catalog *catalog.Service
	logger  *slog.Logger
}

// pageResponse is a page plus the query values that were dropped.
type pageResponse[T any] struct {
	feed.Page[T]
	Warnings []string `json:"warnings,omitempty"`
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(engine *feed.Engine, svc *catalog.Service, logger *slog.Logger) http.Handler {
	h := &Handler{
		feed:    engine,
		catalog: svc,
		logger:  logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Use(callerMiddleware)

		r.Route("/repositories", func(r chi.Router) {
			r.Get("/", h.listRepositories)
			r.Post("/", h.createRepository)
			r.Post("/sync", h.syncRepository)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getRepository)
				r.Put("/", h.updateRepository)
				r.Delete("/", h.deleteRepository)
				r.Get("/branches", h.listBranches)
				r.Post("/branches", h.createBranch)
			})
		})
		r.Get("/activities", h.listActivities)
		r.Get("/stats/overview", h.overview)
		r.Route("/tracked", func(r chi.Router) {
			r.Get("/", h.listTracked)
			r.Put("/{id}", h.trackRepository)
			r.Delete("/{id}", h.untrackRepository)
		})
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listActivities handles GET /v1/activities
func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	q, warnings := feed.ParseActivityQuery(r.URL.Query())
	h.logWarnings(r, warnings)

	page, err := h.feed.QueryActivities(r.Context(), q)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, pageResponse[model.FeedItem]{Page: page, Warnings: messages(warnings)})
}

// listRepositories handles GET /v1/repositories
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	q, warnings := feed.ParseRepositoryQuery(r.URL.Query())
	h.logWarnings(r, warnings)

	page, err := h.feed.ListRepositories(r.Context(), q)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, pageResponse[model.Repository]{Page: page, Warnings: messages(warnings)})
}

func (h *Handler) getRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	repo, err := h.feed.GetRepository(r.Context(), id)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, repo)
}

func (h *Handler) createRepository(w http.ResponseWriter, r *http.Request) {
	var in catalog.NewRepository
	if !decodeBody(w, r, &in) {
		return
	}
	repo, created, err := h.catalog.CreateRepository(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, repo)
}

func (h *Handler) updateRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in catalog.RepositoryUpdate
	if !decodeBody(w, r, &in) {
		return
	}
	repo, err := h.catalog.UpdateRepository(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, repo)
}

func (h *Handler) deleteRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteRepository(r.Context(), callerFrom(r.Context()), id); err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// syncRepository handles POST /v1/repositories/sync {"full_name": "owner/name"}
func (h *Handler) syncRepository(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FullName string `json:"full_name"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	res, err := h.catalog.SyncRepository(r.Context(), callerFrom(r.Context()), in.FullName)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	branches, err := h.feed.ListBranches(r.Context(), id)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, branches)
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in catalog.NewBranch
	if !decodeBody(w, r, &in) {
		return
	}
	b, err := h.catalog.CreateBranch(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, b)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.feed.Overview(r.Context())
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *Handler) listTracked(w http.ResponseWriter, r *http.Request) {
	tracked, err := h.feed.ListTracked(r.Context(), callerFrom(r.Context()).UserID)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tracked)
}

// trackRepository handles PUT /v1/tracked/{id} with an optional
// {"ownership_type": "..."} body.
func (h *Handler) trackRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		OwnershipType string `json:"ownership_type"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &in) {
		return
	}
	tr, err := h.catalog.TrackRepository(r.Context(), callerFrom(r.Context()), id, in.OwnershipType)
	if err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tr)
}

func (h *Handler) untrackRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.catalog.UntrackRepository(r.Context(), callerFrom(r.Context()), id); err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logWarnings(r *http.Request, warnings []error) {
	for _, w := range warnings {
		h.logger.Warn("Dropped query parameter", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", w)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func messages(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
