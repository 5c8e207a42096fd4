package api

import (
	"encoding/json"
	"errors"
	"net/http"

	custom_errors "github-activity-feed/internal/errors"
)

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

// respondWithErr maps a domain error onto an HTTP status.
func (h *Handler) respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound       *custom_errors.ErrNotFound
		remoteNotFound *custom_errors.ErrRepositoryNotFound
		forbidden      *custom_errors.ErrForbidden
		validation     *custom_errors.ErrValidation
		badFormat      *custom_errors.ErrInvalidRepoFormat
		conflict       *custom_errors.ErrConflict
		upstream       *custom_errors.ErrUpstream
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &remoteNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &forbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &validation), errors.As(err, &badFormat):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &upstream):
		h.logger.Warn("Upstream failure", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusBadGateway, "Upstream service error")
	default:
		h.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
