package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github-activity-feed/internal/model"
)

// RepositoryToModel translates a repositories row to the domain model.
func RepositoryToModel(r Repository) model.Repository {
	return model.Repository{
		ID:            r.ID,
		GithubID:      Int8Ptr(r.GithubID),
		Name:          r.Name,
		FullName:      r.FullName,
		Owner:         r.Owner,
		URL:           r.Url,
		Description:   TextPtr(r.Description),
		Stars:         int(r.Stars),
		Forks:         int(r.Forks),
		Language:      TextPtr(r.Language),
		DefaultBranch: r.DefaultBranch,
		LastUpdated:   TimePtr(r.LastUpdated),
		LastSyncedAt:  TimePtr(r.LastSyncedAt),
		CreatedAt:     r.CreatedAt,
	}
}

func BranchToModel(b Branch) model.Branch {
	return model.Branch{
		ID:            b.ID,
		RepositoryID:  b.RepositoryID,
		Name:          b.Name,
		LastCommitSHA: TextPtr(b.LastCommitSha),
		IsProtected:   b.IsProtected,
		CreatedAt:     b.CreatedAt,
	}
}

func ActivityToModel(a Activity) model.Activity {
	return model.Activity{
		ID:           a.ID,
		NaturalKey:   a.NaturalKey,
		Type:         model.ActivityType(a.ActivityType),
		Actor:        a.Actor,
		Action:       a.Action,
		Ref:          a.Ref,
		OccurredAt:   a.OccurredAt,
		Payload:      model.Payload(a.Payload),
		RepositoryID: a.RepositoryID,
		BranchID:     Int8Ptr(a.BranchID),
		CreatedAt:    a.CreatedAt,
	}
}

// FeedItemToModel translates a joined feed row.
func FeedItemToModel(r ListActivitiesRow) model.FeedItem {
	return model.FeedItem{
		Activity: model.Activity{
			ID:           r.ID,
			NaturalKey:   r.NaturalKey,
			Type:         model.ActivityType(r.ActivityType),
			Actor:        r.Actor,
			Action:       r.Action,
			Ref:          r.Ref,
			OccurredAt:   r.OccurredAt,
			Payload:      model.Payload(r.Payload),
			RepositoryID: r.RepositoryID,
			BranchID:     Int8Ptr(r.BranchID),
			CreatedAt:    r.CreatedAt,
		},
		Repository: &model.RepositoryRef{
			ID:       r.RepositoryID,
			Name:     r.RepositoryName,
			FullName: r.RepositoryFullName,
			Owner:    r.RepositoryOwner,
			URL:      r.RepositoryUrl,
		},
	}
}

func TrackedToModel(t TrackedRepository) model.TrackedRepository {
	return model.TrackedRepository{
		ID:           t.ID,
		UserID:       t.UserID,
		RepositoryID: t.RepositoryID,
		Ownership:    model.OwnershipType(t.OwnershipType),
		AddedAt:      t.AddedAt,
	}
}

func Text(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func TextPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func Int8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func Int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func Timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func TimePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
