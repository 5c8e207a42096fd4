// internal/syncer/syncer_test.go
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gh "github.com/google/go-github/v62/github"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-activity-feed/internal/database"
	"github-activity-feed/internal/database/dbtest"
	custom_errors "github-activity-feed/internal/errors"
	"github-activity-feed/internal/github"
	"github-activity-feed/internal/model"
)

var testLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

type streamItem struct {
	ev  github.RawEvent
	err error
}

// fakeFetcher serves canned metadata and events.
type fakeFetcher struct {
	mu       sync.Mutex
	meta     *model.RepositoryMetadata
	metaErrs []error
	items    []streamItem
	sinces   []time.Time
	calls    atomic.Int32
	release  chan struct{}
}

func (f *fakeFetcher) GetRepository(ctx context.Context, owner, name string) (*model.RepositoryMetadata, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.metaErrs) > 0 {
		err := f.metaErrs[0]
		f.metaErrs = f.metaErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	m := *f.meta
	return &m, nil
}

func (f *fakeFetcher) RecentEvents(ctx context.Context, owner, name string, since time.Time) iter.Seq2[github.RawEvent, error] {
	f.mu.Lock()
	f.sinces = append(f.sinces, since)
	items := append([]streamItem(nil), f.items...)
	f.mu.Unlock()

	return func(yield func(github.RawEvent, error) bool) {
		for _, it := range items {
			if !yield(it.ev, it.err) {
				return
			}
		}
	}
}

func testMeta() *model.RepositoryMetadata {
	return &model.RepositoryMetadata{
		GithubID:      4242,
		Name:          "repo",
		FullName:      "octo/repo",
		Owner:         "octo",
		URL:           "https://github.com/octo/repo",
		Stars:         10,
		Forks:         2,
		DefaultBranch: "main",
	}
}

func commit(t *testing.T, sha string, at time.Time) streamItem {
	t.Helper()
	raw := fmt.Sprintf(`{"sha":%q,"author":{"login":"dev"},"commit":{"message":"msg %s","author":{"name":"Dev","date":%q}}}`,
		sha, sha, at.Format(time.RFC3339))
	var c gh.RepositoryCommit
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return streamItem{ev: github.RawEvent{Kind: github.KindCommit, Commit: &c, Raw: json.RawMessage(raw)}}
}

func push(t *testing.T, id, branch string, at time.Time) streamItem {
	t.Helper()
	raw := fmt.Sprintf(`{"id":%q,"type":"PushEvent","actor":{"login":"pusher"},"created_at":%q,"payload":{"ref":"refs/heads/%s"}}`,
		id, at.Format(time.RFC3339), branch)
	var e gh.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	return streamItem{ev: github.RawEvent{Kind: github.KindEvent, Event: &e, Raw: json.RawMessage(raw)}}
}

func newTestSyncer(t *testing.T, store database.Store, f Fetcher, opts Options) *Syncer {
	t.Helper()
	s, err := NewSyncer(store, f, testLogger, nil, opts)
	require.NoError(t, err)
	return s
}

func TestSyncRepository_InsertsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := dbtest.NewMemStore()
	f := &fakeFetcher{
		meta:  testMeta(),
		items: []streamItem{commit(t, "c2", base), commit(t, "c1", base.Add(-time.Hour))},
	}
	s := newTestSyncer(t, store, f, Options{})

	first, err := s.SyncRepository(ctx, "octo/repo")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Fetched)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Skipped)
	assert.Empty(t, first.Warnings)
	require.NotNil(t, first.Repository.LastSyncedAt)

	second, err := s.SyncRepository(ctx, "OCTO/repo")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Skipped)

	assert.Len(t, store.Activities(), 2)
	assert.Len(t, store.Repositories(), 1)

	require.Len(t, f.sinces, 2)
	assert.True(t, f.sinces[1].Equal(*first.Repository.LastSyncedAt), "second sync starts where the first ended")
}

func TestSyncRepository_SkipsAlreadyStoredKeys(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := dbtest.NewMemStore()
	f := &fakeFetcher{meta: testMeta(), items: []streamItem{commit(t, "old", base)}}
	s := newTestSyncer(t, store, f, Options{})

	_, err := s.SyncRepository(ctx, "octo/repo")
	require.NoError(t, err)

	f.items = []streamItem{commit(t, "new1", base.Add(2*time.Hour)), commit(t, "new2", base.Add(time.Hour)), commit(t, "old", base)}
	res, err := s.SyncRepository(ctx, "octo/repo")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, store.Activities(), 3)
}

func TestSyncRepository_UsesTrailingWindowWhenNeverSynced(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeFetcher{meta: testMeta()}
	s := newTestSyncer(t, dbtest.NewMemStore(), f, Options{Window: 6 * time.Hour})
	s.now = func() time.Time { return now }

	res, err := s.SyncRepository(context.Background(), "octo/repo")
	require.NoError(t, err)

	assert.True(t, res.Since.Equal(now.Add(-6*time.Hour)))
	assert.True(t, res.Until.Equal(now))
}

func TestSyncRepository_NotFoundWritesNothing(t *testing.T) {
	store := dbtest.NewMemStore()
	f := &fakeFetcher{meta: testMeta(), metaErrs: []error{&custom_errors.ErrRepositoryNotFound{FullName: "octo/gone"}}}
	s := newTestSyncer(t, store, f, Options{})

	_, err := s.SyncRepository(context.Background(), "octo/gone")

	var nf *custom_errors.ErrRepositoryNotFound
	require.ErrorAs(t, err, &nf)
	assert.Zero(t, store.Writes())
	assert.Empty(t, store.Repositories())
}

func TestSyncRepository_InvalidFormat(t *testing.T) {
	s := newTestSyncer(t, dbtest.NewMemStore(), &fakeFetcher{meta: testMeta()}, Options{})

	for _, in := range []string{"", "octo", "octo/", "/repo", "a/b/c"} {
		_, err := s.SyncRepository(context.Background(), in)
		var fe *custom_errors.ErrInvalidRepoFormat
		assert.ErrorAs(t, err, &fe, in)
	}
}

func TestSyncRepository_CategoryFailureIsWarning(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := dbtest.NewMemStore()
	f := &fakeFetcher{
		meta: testMeta(),
		items: []streamItem{
			commit(t, "c1", base),
			{err: &custom_errors.ErrUpstream{Op: "list issues", StatusCode: http.StatusBadGateway}},
			push(t, "900", "dev", base.Add(time.Minute)),
		},
	}
	s := newTestSyncer(t, store, f, Options{})
	s.now = func() time.Time { return base.Add(time.Hour) }

	res, err := s.SyncRepository(context.Background(), "octo/repo")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Inserted)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "list issues")
	assert.Nil(t, res.Repository.LastSyncedAt, "window start is kept so the next run re-reads it")

	_, err = s.SyncRepository(context.Background(), "octo/repo")
	require.NoError(t, err)
	assert.True(t, f.sinces[1].Equal(f.sinces[0]))
}

func TestSyncRepository_LinksBranches(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := dbtest.NewMemStore()
	f := &fakeFetcher{
		meta: testMeta(),
		items: []streamItem{
			commit(t, "newest", base),
			commit(t, "older", base.Add(-time.Hour)),
			push(t, "77", "dev", base),
		},
	}
	s := newTestSyncer(t, store, f, Options{BatchSize: 1})

	_, err := s.SyncRepository(context.Background(), "octo/repo")
	require.NoError(t, err)

	branches := store.Branches()
	require.Len(t, branches, 2)
	byName := map[string]database.Branch{}
	for _, b := range branches {
		byName[b.Name] = b
	}
	require.Contains(t, byName, "main")
	require.Contains(t, byName, "dev")
	assert.Equal(t, "newest", byName["main"].LastCommitSha.String)
	assert.False(t, byName["main"].IsProtected)

	for _, a := range store.Activities() {
		require.True(t, a.BranchID.Valid, a.NaturalKey)
		switch a.ActivityType {
		case database.ActivityTypeCommit:
			assert.Equal(t, byName["main"].ID, a.BranchID.Int64)
		case database.ActivityTypePush:
			assert.Equal(t, byName["dev"].ID, a.BranchID.Int64)
		}
	}
}

func TestSyncRepository_AdoptsManualRepository(t *testing.T) {
	store := dbtest.NewMemStore()
	manual := store.SeedRepository(database.Repository{Name: "repo", FullName: "octo/repo", Owner: "octo", Url: "u"})
	s := newTestSyncer(t, store, &fakeFetcher{meta: testMeta()}, Options{})

	res, err := s.SyncRepository(context.Background(), "octo/repo")
	require.NoError(t, err)

	assert.Equal(t, manual.ID, res.Repository.ID)
	require.NotNil(t, res.Repository.GithubID)
	assert.Equal(t, int64(4242), *res.Repository.GithubID)
	assert.Equal(t, 10, res.Repository.Stars)
	assert.Len(t, store.Repositories(), 1)
}

func TestSyncRepository_AdoptsManualRepositoryIgnoringCase(t *testing.T) {
	store := dbtest.NewMemStore()
	manual := store.SeedRepository(database.Repository{Name: "Repo", FullName: "Octo/Repo", Owner: "Octo", Url: "u"})
	s := newTestSyncer(t, store, &fakeFetcher{meta: testMeta()}, Options{})

	res, err := s.SyncRepository(context.Background(), "octo/repo")
	require.NoError(t, err)

	assert.Equal(t, manual.ID, res.Repository.ID)
	assert.Equal(t, "octo/repo", res.Repository.FullName)
	require.NotNil(t, res.Repository.GithubID)
	assert.Equal(t, int64(4242), *res.Repository.GithubID)
	assert.Len(t, store.Repositories(), 1)
}

func TestSyncRepository_StoreFailure(t *testing.T) {
	store := dbtest.NewMemStore()
	boom := errors.New("connection reset")
	store.FailOn("InsertActivity", boom)
	f := &fakeFetcher{meta: testMeta(), items: []streamItem{commit(t, "c1", time.Now())}}
	s := newTestSyncer(t, store, f, Options{})

	_, err := s.SyncRepository(context.Background(), "octo/repo")

	var se *custom_errors.ErrStore
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.Branches(), "the failed batch is rolled back")
	assert.False(t, store.Repositories()[0].LastSyncedAt.Valid)
}

func TestSyncRepository_CoalescesConcurrentCalls(t *testing.T) {
	f := &fakeFetcher{meta: testMeta(), release: make(chan struct{})}
	s := newTestSyncer(t, dbtest.NewMemStore(), f, Options{})

	var wg sync.WaitGroup
	results := make([]*model.SyncResult, 2)
	for i, name := range []string{"octo/repo", "Octo/Repo"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.SyncRepository(context.Background(), name)
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, results[0].Repository.ID, results[1].Repository.ID)
}

func TestSyncRepository_StarterCancellationDoesNotReachWaiters(t *testing.T) {
	f := &fakeFetcher{meta: testMeta(), release: make(chan struct{})}
	s := newTestSyncer(t, dbtest.NewMemStore(), f, Options{})

	starterCtx, cancelStarter := context.WithCancel(context.Background())
	starterErr := make(chan error, 1)
	go func() {
		_, err := s.SyncRepository(starterCtx, "octo/repo")
		starterErr <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		res *model.SyncResult
		err error
	}
	waiter := make(chan outcome, 1)
	go func() {
		res, err := s.SyncRepository(context.Background(), "octo/repo")
		waiter <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelStarter()
	assert.ErrorIs(t, <-starterErr, context.Canceled)
	close(f.release)

	got := <-waiter
	require.NoError(t, got.err)
	require.NotNil(t, got.res)
	assert.Equal(t, "octo/repo", got.res.Repository.FullName)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestSyncRepository_CoalescedCallersGetIndependentWarnings(t *testing.T) {
	f := &fakeFetcher{
		meta:    testMeta(),
		release: make(chan struct{}),
		items:   []streamItem{{err: &custom_errors.ErrUpstream{Op: "list issues", StatusCode: 500}}},
	}
	s := newTestSyncer(t, dbtest.NewMemStore(), f, Options{})

	var wg sync.WaitGroup
	results := make([]*model.SyncResult, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.SyncRepository(context.Background(), "octo/repo")
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	require.Len(t, results[0].Warnings, 1)
	require.Len(t, results[1].Warnings, 1)
	results[0].Warnings[0] = "changed"
	assert.NotEqual(t, "changed", results[1].Warnings[0])
}

func TestSyncRepository_WaiterReturnsOnOwnCancellation(t *testing.T) {
	f := &fakeFetcher{meta: testMeta(), release: make(chan struct{})}
	s := newTestSyncer(t, dbtest.NewMemStore(), f, Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.SyncRepository(context.Background(), "octo/repo")
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.SyncRepository(ctx, "octo/repo")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(f.release)
	<-done
}

func TestSyncWithRetry(t *testing.T) {
	id := RepoIdentifier{Owner: "octo", Name: "repo"}

	t.Run("retries retryable upstream errors", func(t *testing.T) {
		f := &fakeFetcher{meta: testMeta(), metaErrs: []error{
			&custom_errors.ErrUpstream{Op: "get repository", StatusCode: http.StatusBadGateway},
			&custom_errors.ErrUpstream{Op: "get repository", Err: errors.New("dial tcp")},
		}}
		s := newTestSyncer(t, dbtest.NewMemStore(), f, Options{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: time.Minute})
		var slept []time.Duration
		s.sleep = func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}

		res, err := s.syncWithRetry(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, int32(3), f.calls.Load())
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
	})

	t.Run("does not retry not found", func(t *testing.T) {
		f := &fakeFetcher{meta: testMeta(), metaErrs: []error{&custom_errors.ErrRepositoryNotFound{FullName: "octo/repo"}}}
		s := newTestSyncer(t, dbtest.NewMemStore(), f, Options{MaxAttempts: 3})
		s.sleep = func(ctx context.Context, d time.Duration) error {
			t.Fatal("unexpected backoff")
			return nil
		}

		_, err := s.syncWithRetry(context.Background(), id)
		var nf *custom_errors.ErrRepositoryNotFound
		assert.ErrorAs(t, err, &nf)
		assert.Equal(t, int32(1), f.calls.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		upstream := &custom_errors.ErrUpstream{Op: "get repository", StatusCode: http.StatusServiceUnavailable}
		f := &fakeFetcher{meta: testMeta(), metaErrs: []error{upstream, upstream, upstream}}
		s := newTestSyncer(t, dbtest.NewMemStore(), f, Options{MaxAttempts: 2})
		s.sleep = func(ctx context.Context, d time.Duration) error { return nil }

		_, err := s.syncWithRetry(context.Background(), id)
		assert.ErrorIs(t, err, upstream)
		assert.Equal(t, int32(2), f.calls.Load())
	})
}

func TestBackoffFor(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Syncer{opts: Options{InitialBackoff: time.Second, MaxBackoff: 10 * time.Second}, now: func() time.Time { return now }}
	plain := errors.New("x")

	assert.Equal(t, time.Second, s.backoffFor(1, plain))
	assert.Equal(t, 4*time.Second, s.backoffFor(3, plain))
	assert.Equal(t, 10*time.Second, s.backoffFor(6, plain))

	limited := &custom_errors.ErrUpstream{RateLimited: true, ResetAt: now.Add(7 * time.Second)}
	assert.Equal(t, 7*time.Second, s.backoffFor(1, limited))

	farReset := &custom_errors.ErrUpstream{RateLimited: true, ResetAt: now.Add(time.Hour)}
	assert.Equal(t, 10*time.Second, s.backoffFor(1, farReset))
}

func TestNewSyncer_InvalidRepoList(t *testing.T) {
	_, err := NewSyncer(dbtest.NewMemStore(), &fakeFetcher{}, testLogger, []string{"ok/repo", "broken"}, Options{})
	var fe *custom_errors.ErrInvalidRepoFormat
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "broken", fe.Repo)
}

func TestRunSyncCycle_SyncsEveryConfiguredRepository(t *testing.T) {
	store := dbtest.NewMemStore()
	f := &fakeFetcher{meta: testMeta()}
	s, err := NewSyncer(store, f, testLogger, []string{"octo/repo", "octo/other"}, Options{Concurrency: 2})
	require.NoError(t, err)

	s.runSyncCycle(context.Background())

	assert.Equal(t, int32(2), f.calls.Load())
}

func TestSyncer_UpsertRepository(t *testing.T) {
	ctx := context.Background()
	meta := testMeta()

	t.Run("claims then upserts by github id", func(t *testing.T) {
		mockStore := new(dbtest.MockStore)
		syncer := &Syncer{store: mockStore, logger: testLogger}

		mockStore.On("ClaimRepositoryGithubID", ctx, database.ClaimRepositoryGithubIDParams{
			GithubID: pgtype.Int8{Int64: 4242, Valid: true},
			FullName: "octo/repo",
		}).Return(int64(0), nil).Once()
		expected := database.Repository{ID: 1, FullName: "octo/repo"}
		mockStore.On("UpsertRepository", ctx, mock.MatchedBy(func(p database.UpsertRepositoryParams) bool {
			return p.GithubID.Int64 == 4242 && p.DefaultBranch == "main" && p.Stars == 10
		})).Return(expected, nil).Once()

		repo, err := syncer.upsertRepository(ctx, meta)

		assert.NoError(t, err)
		assert.Equal(t, expected, repo)
		mockStore.AssertExpectations(t)
	})

	t.Run("wraps unexpected database errors", func(t *testing.T) {
		mockStore := new(dbtest.MockStore)
		syncer := &Syncer{store: mockStore, logger: testLogger}
		dbError := errors.New("unexpected database error")

		mockStore.On("ClaimRepositoryGithubID", ctx, mock.Anything).Return(int64(0), dbError).Once()

		_, err := syncer.upsertRepository(ctx, meta)

		var se *custom_errors.ErrStore
		assert.ErrorAs(t, err, &se)
		assert.ErrorIs(t, err, dbError)
		mockStore.AssertNotCalled(t, "UpsertRepository", mock.Anything, mock.Anything)
	})
}
