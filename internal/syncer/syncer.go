// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github-activity-feed/internal/database"
	custom_errors "github-activity-feed/internal/errors"
	"github-activity-feed/internal/github"
	"github-activity-feed/internal/model"
	"github-activity-feed/internal/normalizer"
)

// Fetcher is the part of the GitHub client the syncer depends on.
type Fetcher interface {
	GetRepository(ctx context.Context, owner, name string) (*model.RepositoryMetadata, error)
	RecentEvents(ctx context.Context, owner, name string, since time.Time) iter.Seq2[github.RawEvent, error]
}

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

func (id RepoIdentifier) String() string {
	return id.Owner + "/" + id.Name
}

// Options tunes synchronization and the scheduler.
type Options struct {
	Window         time.Duration
	BatchSize      int
	Interval       time.Duration
	Concurrency    int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RunTimeout bounds one shared sync run. The run outlives the
	// cancellation of whichever caller started it.
	RunTimeout time.Duration
}

// DefaultOptions returns the settings used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Window:         24 * time.Hour,
		BatchSize:      100,
		Interval:       time.Hour,
		Concurrency:    5,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		RunTimeout:     15 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Window <= 0 {
		o.Window = d.Window
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.Interval <= 0 {
		o.Interval = d.Interval
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = d.InitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = d.RunTimeout
	}
	return o
}

// Syncer orchestrates the fetching and storing of activity.
type Syncer struct {
	store       database.Store
	fetcher     Fetcher
	logger      *slog.Logger
	reposToSync []RepoIdentifier
	opts        Options
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	inflight    singleflight.Group
}

// NewSyncer creates a new Syncer instance. repos is the scheduler's list
// and may be empty when only on-demand syncs are used.
func NewSyncer(store database.Store, fetcher Fetcher, logger *slog.Logger, repos []string, opts Options) (*Syncer, error) {
	parsedRepos, err := parseRepoIdentifiers(repos)
	if err != nil {
		return nil, err
	}

	return &Syncer{
		store:       store,
		fetcher:     fetcher,
		logger:      logger,
		reposToSync: parsedRepos,
		opts:        opts.withDefaults(),
		now:         time.Now,
		sleep:       sleepContext,
	}, nil
}

// Start begins the continuous synchronization process.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.opts.Interval.String(), "concurrency", s.opts.Concurrency, "repos", len(s.reposToSync))
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.runSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runSyncCycle performs a synchronization pass for all configured repositories concurrently.
func (s *Syncer) runSyncCycle(ctx context.Context) {
	s.logger.Info("Starting new sync cycle")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, repoID := range s.reposToSync {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, err := s.syncWithRetry(gctx, repoID)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Failed to sync repository", "owner", repoID.Owner, "repo", repoID.Name, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Sync cycle finished with an error", "error", err)
	} else {
		s.logger.Info("Sync cycle finished")
	}
}

// syncWithRetry retries retryable upstream failures with exponential backoff.
func (s *Syncer) syncWithRetry(ctx context.Context, id RepoIdentifier) (*model.SyncResult, error) {
	var err error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		var res *model.SyncResult
		res, err = s.SyncRepository(ctx, id.String())
		if err == nil {
			return res, nil
		}
		if !custom_errors.IsRetryable(err) || attempt == s.opts.MaxAttempts {
			break
		}

		backoff := s.backoffFor(attempt, err)
		s.logger.Warn("Sync failed, retrying",
			"repo", id.String(),
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if err := s.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, err
}

// backoffFor doubles the initial backoff per attempt. A rate-limit reset
// time replaces the computed value. Both are capped by MaxBackoff.
func (s *Syncer) backoffFor(attempt int, err error) time.Duration {
	backoff := s.opts.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}

	var ue *custom_errors.ErrUpstream
	if errors.As(err, &ue) && ue.RateLimited && !ue.ResetAt.IsZero() {
		if wait := ue.ResetAt.Sub(s.now()); wait > 0 {
			backoff = wait
		}
	}

	if backoff > s.opts.MaxBackoff {
		backoff = s.opts.MaxBackoff
	}
	return backoff
}

// SyncRepository pulls recent activity of fullName ("owner/name") into the
// store. Concurrent calls for the same repository share one run.
func (s *Syncer) SyncRepository(ctx context.Context, fullName string) (*model.SyncResult, error) {
	id, err := parseRepoIdentifier(fullName)
	if err != nil {
		return nil, err
	}

	ch := s.inflight.DoChan(strings.ToLower(id.String()), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RunTimeout)
		defer cancel()
		return s.syncRepo(runCtx, id)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*model.SyncResult)
		out.Warnings = slices.Clone(out.Warnings)
		return &out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// syncRepo handles the full synchronization logic for a single repository.
func (s *Syncer) syncRepo(ctx context.Context, id RepoIdentifier) (*model.SyncResult, error) {
	logger := s.logger.With("owner", id.Owner, "repo", id.Name)
	logger.Info("Syncing repository")

	started := s.now().UTC()

	meta, err := s.fetcher.GetRepository(ctx, id.Owner, id.Name)
	if err != nil {
		return nil, err
	}
	if meta.FullName == "" {
		meta.FullName = id.String()
	}
	if meta.Owner == "" {
		meta.Owner = id.Owner
	}
	if meta.Name == "" {
		meta.Name = id.Name
	}

	dbRepo, err := s.upsertRepository(ctx, meta)
	if err != nil {
		return nil, err
	}
	logger = logger.With("repo_id", dbRepo.ID)

	since := started.Add(-s.opts.Window)
	if dbRepo.LastSyncedAt.Valid {
		since = dbRepo.LastSyncedAt.Time
	}
	logger.Info("Fetching activity since", "timestamp", since.Format(time.RFC3339))

	res := &model.SyncResult{Since: since, Until: started}
	branches := make(map[string]int64)
	batch := make([]model.Activity, 0, s.opts.BatchSize)
	failed := false

	for ev, err := range s.fetcher.RecentEvents(ctx, id.Owner, id.Name, since) {
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed = true
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}

		res.Fetched++
		act := normalizer.Normalize(ev)
		if act.OccurredAt.IsZero() {
			act.OccurredAt = started
		}
		batch = append(batch, act)

		if len(batch) >= s.opts.BatchSize {
			if err := s.insertBatch(ctx, dbRepo, batch, branches, res); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.insertBatch(ctx, dbRepo, batch, branches, res); err != nil {
			return nil, err
		}
	}

	if !failed {
		syncedAt := pgtype.Timestamptz{Time: started, Valid: true}
		err := s.store.MarkRepositorySynced(ctx, database.MarkRepositorySyncedParams{ID: dbRepo.ID, LastSyncedAt: syncedAt})
		if err != nil {
			return nil, custom_errors.Store("mark repository synced", err)
		}
		dbRepo.LastSyncedAt = syncedAt
	}

	res.Repository = database.RepositoryToModel(dbRepo)
	logger.Info("Repository synced",
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// upsertRepository creates or updates the repository row in one transaction.
// A manually created row with the same full name is adopted first.
func (s *Syncer) upsertRepository(ctx context.Context, meta *model.RepositoryMetadata) (database.Repository, error) {
	githubID := pgtype.Int8{Int64: meta.GithubID, Valid: true}

	var repo database.Repository
	err := s.store.WithTx(ctx, func(q database.Querier) error {
		claimed, err := q.ClaimRepositoryGithubID(ctx, database.ClaimRepositoryGithubIDParams{
			GithubID: githubID,
			FullName: meta.FullName,
		})
		if err != nil {
			return err
		}
		if claimed > 0 {
			s.logger.Info("Adopted manually created repository", "full_name", meta.FullName)
		}

		repo, err = q.UpsertRepository(ctx, database.UpsertRepositoryParams{
			GithubID:      githubID,
			Name:          meta.Name,
			FullName:      meta.FullName,
			Owner:         meta.Owner,
			Url:           meta.URL,
			Description:   database.Text(meta.Description),
			Stars:         int32(meta.Stars),
			Forks:         int32(meta.Forks),
			Language:      database.Text(meta.Language),
			DefaultBranch: meta.DefaultBranch,
		})
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return database.Repository{}, &custom_errors.ErrConflict{Resource: "repository", Key: meta.FullName}
		}
		return database.Repository{}, custom_errors.Store("upsert repository", err)
	}
	return repo, nil
}

// insertBatch inserts activities in one transaction. Rows whose natural key
// already exists are counted as skipped. Branch ids resolved here are added
// to branches only once the transaction commits.
func (s *Syncer) insertBatch(ctx context.Context, repo database.Repository, batch []model.Activity, branches map[string]int64, res *model.SyncResult) error {
	var inserted, skipped int
	var touched map[string]int64

	err := s.store.WithTx(ctx, func(q database.Querier) error {
		inserted, skipped = 0, 0
		touched = make(map[string]int64)

		for _, a := range batch {
			branchID, err := s.resolveBranch(ctx, q, repo, a, branches, touched)
			if err != nil {
				return fmt.Errorf("touch branch: %w", err)
			}

			_, err = q.InsertActivity(ctx, database.InsertActivityParams{
				NaturalKey:   a.NaturalKey,
				ActivityType: database.ActivityType(a.Type),
				Actor:        a.Actor,
				Action:       a.Action,
				Ref:          a.Ref,
				OccurredAt:   a.OccurredAt,
				Payload:      a.Payload,
				RepositoryID: repo.ID,
				BranchID:     branchID,
			})
			switch {
			case err == nil:
				inserted++
			case database.IsNoRows(err):
				skipped++
			default:
				return fmt.Errorf("insert activity %s: %w", a.NaturalKey, err)
			}
		}
		return nil
	})
	if err != nil {
		return custom_errors.Store("insert activities", err)
	}

	maps.Copy(branches, touched)
	res.Inserted += inserted
	res.Skipped += skipped
	return nil
}

// resolveBranch returns the branch an activity belongs to, creating the
// branch row on first sight. Commits belong to the default branch, and the
// first one seen (the newest) becomes its head.
func (s *Syncer) resolveBranch(ctx context.Context, q database.Querier, repo database.Repository, a model.Activity, known, touched map[string]int64) (pgtype.Int8, error) {
	var name string
	var sha pgtype.Text

	switch a.Type {
	case model.ActivityCommit:
		name = repo.DefaultBranch
		sha = pgtype.Text{String: strings.TrimPrefix(a.NaturalKey, "commit_"), Valid: true}
	case model.ActivityPush, model.ActivityCreate:
		name = a.BranchName
	}
	if name == "" {
		return pgtype.Int8{}, nil
	}

	if id, ok := known[name]; ok {
		return pgtype.Int8{Int64: id, Valid: true}, nil
	}
	if id, ok := touched[name]; ok {
		return pgtype.Int8{Int64: id, Valid: true}, nil
	}

	b, err := q.TouchBranch(ctx, database.TouchBranchParams{
		RepositoryID:  repo.ID,
		Name:          name,
		LastCommitSha: sha,
	})
	if err != nil {
		return pgtype.Int8{}, err
	}
	touched[name] = b.ID
	return pgtype.Int8{Int64: b.ID, Valid: true}, nil
}

func parseRepoIdentifier(r string) (RepoIdentifier, error) {
	parts := strings.Split(strings.TrimSpace(r), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoIdentifier{}, &custom_errors.ErrInvalidRepoFormat{Repo: r}
	}
	return RepoIdentifier{Owner: parts[0], Name: parts[1]}, nil
}

func parseRepoIdentifiers(repos []string) ([]RepoIdentifier, error) {
	var identifiers []RepoIdentifier
	for _, r := range repos {
		id, err := parseRepoIdentifier(r)
		if err != nil {
			return nil, err
		}
		identifiers = append(identifiers, id)
	}
	return identifiers, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
