package dbtest

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"

	"github-activity-feed/internal/database"
)

// MockStore is a testify mock of database.Store. WithTx runs fn against
// the mock itself so expectations set on the Querier methods apply inside
// transactions too.
type MockStore struct {
	mock.Mock
}

var _ database.Store = (*MockStore)(nil)

func (m *MockStore) WithTx(ctx context.Context, fn func(q database.Querier) error) error {
	return fn(m)
}

func (m *MockStore) ClaimRepositoryGithubID(ctx context.Context, arg database.ClaimRepositoryGithubIDParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CountActivities(ctx context.Context, arg database.CountActivitiesParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CountActivitiesByType(ctx context.Context) ([]database.CountActivitiesByTypeRow, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]database.CountActivitiesByTypeRow)
	return rows, args.Error(1)
}

func (m *MockStore) CountDistinctActors(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CountRepositories(ctx context.Context, pattern pgtype.Text) (int64, error) {
	args := m.Called(ctx, pattern)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CreateBranch(ctx context.Context, arg database.CreateBranchParams) (database.Branch, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Branch), args.Error(1)
}

func (m *MockStore) CreateRepository(ctx context.Context, arg database.CreateRepositoryParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}

func (m *MockStore) DeleteRepository(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetActivityByNaturalKey(ctx context.Context, naturalKey string) (database.Activity, error) {
	args := m.Called(ctx, naturalKey)
	return args.Get(0).(database.Activity), args.Error(1)
}

func (m *MockStore) GetRepository(ctx context.Context, id int64) (database.Repository, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.Repository), args.Error(1)
}

func (m *MockStore) GetRepositoryByFullName(ctx context.Context, fullName string) (database.Repository, error) {
	args := m.Called(ctx, fullName)
	return args.Get(0).(database.Repository), args.Error(1)
}

func (m *MockStore) GetRepositoryByGithubID(ctx context.Context, githubID pgtype.Int8) (database.Repository, error) {
	args := m.Called(ctx, githubID)
	return args.Get(0).(database.Repository), args.Error(1)
}

func (m *MockStore) InsertActivity(ctx context.Context, arg database.InsertActivityParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) ListActivities(ctx context.Context, arg database.ListActivitiesParams) ([]database.ListActivitiesRow, error) {
	args := m.Called(ctx, arg)
	rows, _ := args.Get(0).([]database.ListActivitiesRow)
	return rows, args.Error(1)
}

func (m *MockStore) ListBranchesByRepository(ctx context.Context, repositoryID int64) ([]database.Branch, error) {
	args := m.Called(ctx, repositoryID)
	rows, _ := args.Get(0).([]database.Branch)
	return rows, args.Error(1)
}

func (m *MockStore) ListRepositories(ctx context.Context, arg database.ListRepositoriesParams) ([]database.Repository, error) {
	args := m.Called(ctx, arg)
	rows, _ := args.Get(0).([]database.Repository)
	return rows, args.Error(1)
}

func (m *MockStore) ListTrackedRepositories(ctx context.Context, userID int64) ([]database.TrackedRepository, error) {
	args := m.Called(ctx, userID)
	rows, _ := args.Get(0).([]database.TrackedRepository)
	return rows, args.Error(1)
}

func (m *MockStore) MarkRepositorySynced(ctx context.Context, arg database.MarkRepositorySyncedParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *MockStore) TouchBranch(ctx context.Context, arg database.TouchBranchParams) (database.Branch, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Branch), args.Error(1)
}

func (m *MockStore) TrackRepository(ctx context.Context, arg database.TrackRepositoryParams) (database.TrackedRepository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.TrackedRepository), args.Error(1)
}

func (m *MockStore) UntrackRepository(ctx context.Context, arg database.UntrackRepositoryParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) UpdateRepositoryDescription(ctx context.Context, arg database.UpdateRepositoryDescriptionParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}

func (m *MockStore) UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}
