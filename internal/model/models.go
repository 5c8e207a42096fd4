// internal/model/models.go
package model

import (
	"time"
)

// Repository is a tracked GitHub repository as persisted locally.
type Repository struct {
	ID            int64      `json:"id"`
	GithubID      *int64     `json:"github_id"`
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Owner         string     `json:"owner"`
	URL           string     `json:"url"`
	Description   *string    `json:"description"`
	Stars         int        `json:"stars"`
	Forks         int        `json:"forks"`
	Language      *string    `json:"language"`
	DefaultBranch string     `json:"default_branch,omitempty"`
	LastUpdated   *time.Time `json:"last_updated"`
	LastSyncedAt  *time.Time `json:"last_synced_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RepositoryMetadata is what the hosting API reports about a repository.
type RepositoryMetadata struct {
	GithubID      int64
	Name          string
	FullName      string
	Owner         string
	URL           string
	Description   *string
	Stars         int
	Forks         int
	Language      *string
	DefaultBranch string
}

// RepositoryRef is the short repository form embedded in feed items.
type RepositoryRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    string `json:"owner"`
	URL      string `json:"url"`
}

type Branch struct {
	ID            int64     `json:"id"`
	RepositoryID  int64     `json:"repository_id"`
	Name          string    `json:"name"`
	LastCommitSHA *string   `json:"last_commit_sha"`
	IsProtected   bool      `json:"is_protected"`
	CreatedAt     time.Time `json:"created_at"`
}

// Activity is one entry of the append-only activity log.
type Activity struct {
	ID           int64        `json:"id"`
	NaturalKey   string       `json:"github_id"`
	Type         ActivityType `json:"activity_type"`
	Actor        string       `json:"actor"`
	Action       string       `json:"action"`
	Ref          string       `json:"ref"`
	OccurredAt   time.Time    `json:"timestamp"`
	Payload      Payload      `json:"data"`
	RepositoryID int64        `json:"repository_id"`
	BranchID     *int64       `json:"branch_id"`
	CreatedAt    time.Time    `json:"created_at"`

	// BranchName is a normalization hint used to resolve BranchID during sync.
	BranchName string `json:"-"`
}

// FeedItem is an activity together with the repository it belongs to.
type FeedItem struct {
	Activity
	Repository *RepositoryRef `json:"repository"`
}

// TrackedRepository records that a user follows a repository.
type TrackedRepository struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	RepositoryID int64         `json:"repository_id"`
	Ownership    OwnershipType `json:"ownership_type"`
	AddedAt      time.Time     `json:"added_at"`
}

// SyncResult summarizes one synchronization pass of a repository.
type SyncResult struct {
	Repository Repository `json:"repository"`
	Since      time.Time  `json:"since"`
	Until      time.Time  `json:"until"`
	Fetched    int        `json:"fetched"`
	Inserted   int        `json:"inserted"`
	Skipped    int        `json:"skipped"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// Overview holds global feed counters.
type Overview struct {
	Repositories       int64 `json:"repositories"`
	Commits            int64 `json:"commits"`
	PullRequests       int64 `json:"pull_requests"`
	Issues             int64 `json:"issues"`
	ActiveContributors int64 `json:"active_contributors"`
}
