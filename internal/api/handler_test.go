package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-activity-feed/internal/catalog"
	"github-activity-feed/internal/database"
	"github-activity-feed/internal/database/dbtest"
	custom_errors "github-activity-feed/internal/errors"
	"github-activity-feed/internal/feed"
	"github-activity-feed/internal/model"
)

type stubSyncer struct {
	res *model.SyncResult
	err error
}

func (s stubSyncer) SyncRepository(ctx context.Context, fullName string) (*model.SyncResult, error) {
	return s.res, s.err
}

func setupRouter(t *testing.T, syncer catalog.Syncer) (http.Handler, *dbtest.MemStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := dbtest.NewMemStore()
	return NewRouter(feed.NewEngine(store, logger), catalog.NewService(store, syncer, logger), logger), store
}

func do(t *testing.T, h http.Handler, method, path, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if role != "" {
		req.Header.Set(headerUserID, "7")
		req.Header.Set(headerUserRole, role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := setupRouter(t, nil)
	rec := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCallerHeadersRequired(t *testing.T) {
	h, _ := setupRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/v1/activities", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/activities", "superuser", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/activities", "VIEWER", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleMapping(t *testing.T) {
	h, store := setupRouter(t, nil)
	body := `{"name":"r","owner":"o","full_name":"o/r"}`

	rec := do(t, h, http.MethodPost, "/v1/repositories", "viewer", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.Repositories())

	rec = do(t, h, http.MethodPost, "/v1/repositories", "moderator", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var repo model.Repository
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &repo))

	rec = do(t, h, http.MethodPost, "/v1/repositories", "admin", body)
	assert.Equal(t, http.StatusOK, rec.Code, "existing repository is returned")

	path := "/v1/repositories/" + itoa(repo.ID)
	rec = do(t, h, http.MethodDelete, path, "moderator", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodDelete, path, "admin", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, path, "viewer", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListActivities(t *testing.T) {
	h, store := setupRouter(t, nil)
	repo := store.SeedRepository(database.Repository{Name: "r", FullName: "o/r", Owner: "o", Url: "u"})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"a", "b", "c"} {
		store.SeedActivity(database.Activity{
			NaturalKey:   key,
			ActivityType: database.ActivityTypeCommit,
			Actor:        "dev",
			OccurredAt:   base.Add(time.Duration(i) * time.Hour),
			Payload:      []byte(`{"k":"` + key + `"}`),
			RepositoryID: repo.ID,
		})
	}

	rec := do(t, h, http.MethodGet, "/v1/activities?per_page=2&page=1&type=nope&start_date=garbage", "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []struct {
			NaturalKey string          `json:"github_id"`
			Data       json.RawMessage `json:"data"`
			Repository struct {
				FullName string `json:"full_name"`
			} `json:"repository"`
		} `json:"items"`
		Total       int64    `json:"total"`
		Pages       int      `json:"pages"`
		CurrentPage int      `json:"current_page"`
		Warnings    []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Total)
	assert.Equal(t, 2, body.Pages)
	assert.Equal(t, 1, body.CurrentPage)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "c", body.Items[0].NaturalKey)
	assert.JSONEq(t, `{"k":"c"}`, string(body.Items[0].Data))
	assert.Equal(t, "o/r", body.Items[0].Repository.FullName)
	assert.Len(t, body.Warnings, 2)
}

func TestSyncEndpoint(t *testing.T) {
	t.Run("upstream failure is bad gateway", func(t *testing.T) {
		h, _ := setupRouter(t, stubSyncer{err: &custom_errors.ErrUpstream{Op: "get repository", StatusCode: 503}})
		rec := do(t, h, http.MethodPost, "/v1/repositories/sync", "admin", `{"full_name":"o/r"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unknown repository is not found", func(t *testing.T) {
		h, _ := setupRouter(t, stubSyncer{err: &custom_errors.ErrRepositoryNotFound{FullName: "o/r"}})
		rec := do(t, h, http.MethodPost, "/v1/repositories/sync", "moderator", `{"full_name":"o/r"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad format is bad request", func(t *testing.T) {
		h, _ := setupRouter(t, stubSyncer{err: &custom_errors.ErrInvalidRepoFormat{Repo: "x"}})
		rec := do(t, h, http.MethodPost, "/v1/repositories/sync", "admin", `{"full_name":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success returns the result", func(t *testing.T) {
		h, _ := setupRouter(t, stubSyncer{res: &model.SyncResult{Fetched: 3, Inserted: 2, Skipped: 1}})
		rec := do(t, h, http.MethodPost, "/v1/repositories/sync", "admin", `{"full_name":"o/r"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var res model.SyncResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, 2, res.Inserted)
	})

	t.Run("viewer is forbidden", func(t *testing.T) {
		h, _ := setupRouter(t, stubSyncer{})
		rec := do(t, h, http.MethodPost, "/v1/repositories/sync", "viewer", `{"full_name":"o/r"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestTrackingEndpoints(t *testing.T) {
	h, store := setupRouter(t, nil)
	repo := store.SeedRepository(database.Repository{Name: "r", FullName: "o/r", Owner: "o", Url: "u"})
	path := "/v1/tracked/" + itoa(repo.ID)

	rec := do(t, h, http.MethodPut, path, "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPut, path, "viewer", `{"ownership_type":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/tracked", "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tracked []model.TrackedRepository
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracked))
	require.Len(t, tracked, 1)
	assert.Equal(t, int64(7), tracked[0].UserID)

	rec = do(t, h, http.MethodDelete, path, "viewer", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, path, "viewer", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBranchesAndOverview(t *testing.T) {
	h, store := setupRouter(t, nil)
	repo := store.SeedRepository(database.Repository{Name: "r", FullName: "o/r", Owner: "o", Url: "u"})
	path := "/v1/repositories/" + itoa(repo.ID) + "/branches"

	rec := do(t, h, http.MethodPost, path, "moderator", `{"name":"main","is_protected":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, path, "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var branches []model.Branch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &branches))
	require.Len(t, branches, 1)
	assert.True(t, branches[0].IsProtected)

	rec = do(t, h, http.MethodGet, "/v1/repositories/abc", "viewer", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/stats/overview", "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var o model.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, int64(1), o.Repositories)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	h, store := setupRouter(t, nil)
	store.FailOn("CountRepositories", assert.AnError)

	rec := do(t, h, http.MethodGet, "/v1/repositories", "viewer", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
