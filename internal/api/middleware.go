package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github-activity-feed/internal/model"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

type callerKey struct{}

// callerMiddleware reads the identity set by the upstream auth proxy. The
// role is parsed here once and travels as a model.Role afterwards.
func callerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawID := r.Header.Get(headerUserID)
		rawRole := r.Header.Get(headerUserRole)
		if rawID == "" || rawRole == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing caller identity")
			return
		}

		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid "+headerUserID+" header")
			return
		}
		role, err := model.ParseRole(rawRole)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid "+headerUserRole+" header")
			return
		}

		ctx := context.WithValue(r.Context(), callerKey{}, model.Caller{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFrom(ctx context.Context) model.Caller {
	c, _ := ctx.Value(callerKey{}).(model.Caller)
	return c
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
