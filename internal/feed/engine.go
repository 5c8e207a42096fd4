// Package feed answers read queries over the persisted activity history.
// Reads take no locks and may observe a partially applied sync.
package feed

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"

	"github-activity-feed/internal/database"
	custom_errors "github-activity-feed/internal/errors"
	"github-activity-feed/internal/model"
)

// Page is one slice of a paginated result.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	CurrentPage int   `json:"current_page"`
}

// Engine serves feed, repository and overview reads.
type Engine struct {
	store  database.Querier
	logger *slog.Logger
}

func NewEngine(store database.Querier, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// QueryActivities returns activities matching every set filter, newest first.
func (e *Engine) QueryActivities(ctx context.Context, q ActivityQuery) (Page[model.FeedItem], error) {
	page, size, offset := pageWindow(q.Page, q.PerPage, DefaultActivityPageSize)

	var filter database.CountActivitiesParams
	if q.RepositoryID != nil {
		filter.RepositoryID = pgtype.Int8{Int64: *q.RepositoryID, Valid: true}
	}
	if q.Type != "" {
		if t, ok := model.ParseActivityType(q.Type); ok {
			filter.ActivityType = database.NullActivityType{ActivityType: database.ActivityType(t), Valid: true}
		} else {
			e.logger.Debug("Ignoring unknown activity type filter", "type", q.Type)
		}
	}
	if q.Actor != "" {
		filter.ActorPattern = pgtype.Text{String: containsPattern(q.Actor), Valid: true}
	}
	filter.StartAt = database.Timestamptz(q.Start)
	filter.EndAt = database.Timestamptz(q.End)

	total, err := e.store.CountActivities(ctx, filter)
	if err != nil {
		return Page[model.FeedItem]{}, custom_errors.Store("count activities", err)
	}

	out := Page[model.FeedItem]{
		Items:       []model.FeedItem{},
		Total:       total,
		Pages:       pageCount(total, size),
		CurrentPage: page,
	}
	if offset >= total || offset > math.MaxInt32 {
		return out, nil
	}

	rows, err := e.store.ListActivities(ctx, database.ListActivitiesParams{
		RepositoryID: filter.RepositoryID,
		ActivityType: filter.ActivityType,
		ActorPattern: filter.ActorPattern,
		StartAt:      filter.StartAt,
		EndAt:        filter.EndAt,
		PageLimit:    int32(size),
		PageOffset:   int32(offset),
	})
	if err != nil {
		return Page[model.FeedItem]{}, custom_errors.Store("list activities", err)
	}
	for _, r := range rows {
		out.Items = append(out.Items, database.FeedItemToModel(r))
	}
	return out, nil
}

// ListRepositories returns repositories, most recently updated first.
// Search matches name, owner or full name as a case-insensitive substring.
func (e *Engine) ListRepositories(ctx context.Context, q RepositoryQuery) (Page[model.Repository], error) {
	page, size, offset := pageWindow(q.Page, q.PerPage, DefaultRepositoryPageSize)

	var pattern pgtype.Text
	if q.Search != "" {
		pattern = pgtype.Text{String: containsPattern(q.Search), Valid: true}
	}

	total, err := e.store.CountRepositories(ctx, pattern)
	if err != nil {
		return Page[model.Repository]{}, custom_errors.Store("count repositories", err)
	}

	out := Page[model.Repository]{
		Items:       []model.Repository{},
		Total:       total,
		Pages:       pageCount(total, size),
		CurrentPage: page,
	}
	if offset >= total || offset > math.MaxInt32 {
		return out, nil
	}

	rows, err := e.store.ListRepositories(ctx, database.ListRepositoriesParams{
		Pattern:    pattern,
		PageLimit:  int32(size),
		PageOffset: int32(offset),
	})
	if err != nil {
		return Page[model.Repository]{}, custom_errors.Store("list repositories", err)
	}
	for _, r := range rows {
		out.Items = append(out.Items, database.RepositoryToModel(r))
	}
	return out, nil
}

func (e *Engine) GetRepository(ctx context.Context, id int64) (model.Repository, error) {
	repo, err := e.store.GetRepository(ctx, id)
	if err != nil {
		if database.IsNoRows(err) {
			return model.Repository{}, &custom_errors.ErrNotFound{Resource: "repository", Key: strconv.FormatInt(id, 10)}
		}
		return model.Repository{}, custom_errors.Store("get repository", err)
	}
	return database.RepositoryToModel(repo), nil
}

// ListBranches returns the branches of an existing repository.
func (e *Engine) ListBranches(ctx context.Context, repositoryID int64) ([]model.Branch, error) {
	if _, err := e.GetRepository(ctx, repositoryID); err != nil {
		return nil, err
	}
	rows, err := e.store.ListBranchesByRepository(ctx, repositoryID)
	if err != nil {
		return nil, custom_errors.Store("list branches", err)
	}
	branches := make([]model.Branch, 0, len(rows))
	for _, b := range rows {
		branches = append(branches, database.BranchToModel(b))
	}
	return branches, nil
}

// ListTracked returns the repositories a user tracks, most recent first.
func (e *Engine) ListTracked(ctx context.Context, userID int64) ([]model.TrackedRepository, error) {
	rows, err := e.store.ListTrackedRepositories(ctx, userID)
	if err != nil {
		return nil, custom_errors.Store("list tracked repositories", err)
	}
	tracked := make([]model.TrackedRepository, 0, len(rows))
	for _, t := range rows {
		tracked = append(tracked, database.TrackedToModel(t))
	}
	return tracked, nil
}

// Overview returns global counters.
func (e *Engine) Overview(ctx context.Context) (model.Overview, error) {
	var o model.Overview

	repos, err := e.store.CountRepositories(ctx, pgtype.Text{})
	if err != nil {
		return o, custom_errors.Store("count repositories", err)
	}
	o.Repositories = repos

	byType, err := e.store.CountActivitiesByType(ctx)
	if err != nil {
		return o, custom_errors.Store("count activities by type", err)
	}
	for _, row := range byType {
		switch model.ActivityType(row.ActivityType) {
		case model.ActivityCommit:
			o.Commits = row.Total
		case model.ActivityPullRequest:
			o.PullRequests = row.Total
		case model.ActivityIssue:
			o.Issues = row.Total
		}
	}

	actors, err := e.store.CountDistinctActors(ctx)
	if err != nil {
		return o, custom_errors.Store("count actors", err)
	}
	o.ActiveContributors = actors
	return o, nil
}
