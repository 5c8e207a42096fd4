// Package catalog holds the role-gated mutations: repositories, branches,
// tracking and on-demand sync. Every operation checks the caller's role
// before touching the store.
package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github-activity-feed/internal/database"
	custom_errors "github-activity-feed/internal/errors"
	"github-activity-feed/internal/model"
)

// Syncer runs an on-demand synchronization.
type Syncer interface {
	SyncRepository(ctx context.Context, fullName string) (*model.SyncResult, error)
}

var (
	editors = []model.Role{model.RoleAdmin, model.RoleModerator}
	admins  = []model.Role{model.RoleAdmin}
)

// NewRepository is the input of CreateRepository.
type NewRepository struct {
	GithubID    *int64  `json:"github_id"`
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Owner       string  `json:"owner"`
	URL         string  `json:"url"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
	Stars       int     `json:"stars"`
	Forks       int     `json:"forks"`
}

// RepositoryUpdate is the input of UpdateRepository. A nil or empty
// description keeps the current one.
type RepositoryUpdate struct {
	Description *string `json:"description"`
}

// NewBranch is the input of CreateBranch.
type NewBranch struct {
	Name          string  `json:"name"`
	LastCommitSHA *string `json:"last_commit_sha"`
	IsProtected   bool    `json:"is_protected"`
}

type Service struct {
	store  database.Store
	syncer Syncer
	logger *slog.Logger
}

func NewService(store database.Store, syncer Syncer, logger *slog.Logger) *Service {
	return &Service{store: store, syncer: syncer, logger: logger}
}

func authorize(caller model.Caller, action string, roles ...model.Role) error {
	if caller.Role.In(roles...) {
		return nil
	}
	return &custom_errors.ErrForbidden{Role: string(caller.Role), Action: action}
}

// CreateRepository registers a repository by hand. If the full name is
// already known the existing row is returned and created is false.
func (s *Service) CreateRepository(ctx context.Context, caller model.Caller, in NewRepository) (repo model.Repository, created bool, err error) {
	if err := authorize(caller, "create repository", editors...); err != nil {
		return model.Repository{}, false, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Owner = strings.TrimSpace(in.Owner)
	in.FullName = strings.TrimSpace(in.FullName)
	for _, f := range []struct{ name, value string }{{"name", in.Name}, {"owner", in.Owner}, {"full_name", in.FullName}} {
		if f.value == "" {
			return model.Repository{}, false, &custom_errors.ErrValidation{Field: f.name, Reason: "is required"}
		}
	}
	if in.URL == "" {
		in.URL = "https://github.com/" + in.FullName
	}
	if in.GithubID != nil && *in.GithubID == 0 {
		in.GithubID = nil
	}

	if existing, err := s.store.GetRepositoryByFullName(ctx, in.FullName); err == nil {
		return database.RepositoryToModel(existing), false, nil
	} else if !database.IsNoRows(err) {
		return model.Repository{}, false, custom_errors.Store("get repository", err)
	}

	row, err := s.store.CreateRepository(ctx, database.CreateRepositoryParams{
		GithubID:    database.Int8(in.GithubID),
		Name:        in.Name,
		FullName:    in.FullName,
		Owner:       in.Owner,
		Url:         in.URL,
		Description: database.Text(in.Description),
		Stars:       int32(in.Stars),
		Forks:       int32(in.Forks),
		Language:    database.Text(in.Language),
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			// Lost a race on full_name, or the github id belongs to another row.
			if existing, getErr := s.store.GetRepositoryByFullName(ctx, in.FullName); getErr == nil {
				return database.RepositoryToModel(existing), false, nil
			}
			return model.Repository{}, false, &custom_errors.ErrConflict{Resource: "repository", Key: in.FullName}
		}
		return model.Repository{}, false, custom_errors.Store("create repository", err)
	}

	s.logger.Info("Repository created", "full_name", row.FullName, "repo_id", row.ID, "user_id", caller.UserID)
	return database.RepositoryToModel(row), true, nil
}

func (s *Service) UpdateRepository(ctx context.Context, caller model.Caller, id int64, upd RepositoryUpdate) (model.Repository, error) {
	if err := authorize(caller, "update repository", editors...); err != nil {
		return model.Repository{}, err
	}

	var desc pgtype.Text
	if upd.Description != nil && *upd.Description != "" {
		desc = pgtype.Text{String: *upd.Description, Valid: true}
	}
	row, err := s.store.UpdateRepositoryDescription(ctx, database.UpdateRepositoryDescriptionParams{Description: desc, ID: id})
	if err != nil {
		if database.IsNoRows(err) {
			return model.Repository{}, repositoryNotFound(id)
		}
		return model.Repository{}, custom_errors.Store("update repository", err)
	}
	return database.RepositoryToModel(row), nil
}

// DeleteRepository removes a repository together with its branches,
// activities and tracking rows.
func (s *Service) DeleteRepository(ctx context.Context, caller model.Caller, id int64) error {
	if err := authorize(caller, "delete repository", admins...); err != nil {
		return err
	}

	n, err := s.store.DeleteRepository(ctx, id)
	if err != nil {
		return custom_errors.Store("delete repository", err)
	}
	if n == 0 {
		return repositoryNotFound(id)
	}
	s.logger.Info("Repository deleted", "repo_id", id, "user_id", caller.UserID)
	return nil
}

func (s *Service) CreateBranch(ctx context.Context, caller model.Caller, repositoryID int64, in NewBranch) (model.Branch, error) {
	if err := authorize(caller, "create branch", editors...); err != nil {
		return model.Branch{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return model.Branch{}, &custom_errors.ErrValidation{Field: "name", Reason: "is required"}
	}

	if _, err := s.store.GetRepository(ctx, repositoryID); err != nil {
		if database.IsNoRows(err) {
			return model.Branch{}, repositoryNotFound(repositoryID)
		}
		return model.Branch{}, custom_errors.Store("get repository", err)
	}

	row, err := s.store.CreateBranch(ctx, database.CreateBranchParams{
		RepositoryID:  repositoryID,
		Name:          in.Name,
		LastCommitSha: database.Text(in.LastCommitSHA),
		IsProtected:   in.IsProtected,
	})
	if err != nil {
		return model.Branch{}, custom_errors.Store("create branch", err)
	}
	return database.BranchToModel(row), nil
}

// SyncRepository triggers an immediate sync of fullName.
func (s *Service) SyncRepository(ctx context.Context, caller model.Caller, fullName string) (*model.SyncResult, error) {
	if err := authorize(caller, "sync repository", editors...); err != nil {
		return nil, err
	}
	return s.syncer.SyncRepository(ctx, fullName)
}

// TrackRepository records that the caller follows a repository. Tracking
// an already tracked repository updates its ownership tag.
func (s *Service) TrackRepository(ctx context.Context, caller model.Caller, repositoryID int64, ownership string) (model.TrackedRepository, error) {
	o, err := model.ParseOwnershipType(ownership)
	if err != nil {
		return model.TrackedRepository{}, &custom_errors.ErrValidation{Field: "ownership_type", Value: ownership, Reason: "must be tracking, owner or collaborator"}
	}

	row, err := s.store.TrackRepository(ctx, database.TrackRepositoryParams{
		UserID:        caller.UserID,
		RepositoryID:  repositoryID,
		OwnershipType: string(o),
	})
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return model.TrackedRepository{}, repositoryNotFound(repositoryID)
		}
		return model.TrackedRepository{}, custom_errors.Store("track repository", err)
	}
	return database.TrackedToModel(row), nil
}

func (s *Service) UntrackRepository(ctx context.Context, caller model.Caller, repositoryID int64) error {
	n, err := s.store.UntrackRepository(ctx, database.UntrackRepositoryParams{UserID: caller.UserID, RepositoryID: repositoryID})
	if err != nil {
		return custom_errors.Store("untrack repository", err)
	}
	if n == 0 {
		return &custom_errors.ErrNotFound{Resource: "tracked repository", Key: strconv.FormatInt(repositoryID, 10)}
	}
	return nil
}

func repositoryNotFound(id int64) error {
	return &custom_errors.ErrNotFound{Resource: "repository", Key: strconv.FormatInt(id, 10)}
}
