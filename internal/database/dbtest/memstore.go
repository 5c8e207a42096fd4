// Package dbtest provides test doubles for the database package: an
// in-memory Store with Postgres-like semantics and a testify mock Querier.
package dbtest

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github-activity-feed/internal/database"
)

// MemStore is an in-memory database.Store. Constraint violations are
// reported as *pgconn.PgError with the Postgres error codes.
type MemStore struct {
	mu sync.Mutex

	Now func() time.Time

	repos    []database.Repository
	branches []database.Branch
	acts     []database.Activity
	tracked  []database.TrackedRepository
	nextID   int64
	writes   int
	failures map[string]error
}

var _ database.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		Now:      time.Now,
		failures: make(map[string]error),
	}
}

// FailOn makes the named Querier method return err until cleared with a nil err.
func (s *MemStore) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// Writes returns the number of successful mutating calls.
func (s *MemStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Activities returns a copy of every stored activity in insertion order.
func (s *MemStore) Activities() []database.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]database.Activity(nil), s.acts...)
}

// Repositories returns a copy of every stored repository in insertion order.
func (s *MemStore) Repositories() []database.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]database.Repository(nil), s.repos...)
}

// Branches returns a copy of every stored branch in insertion order.
func (s *MemStore) Branches() []database.Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]database.Branch(nil), s.branches...)
}

// SeedActivity stores a row as is, assigning ID and CreatedAt when zero.
func (s *MemStore) SeedActivity(a database.Activity) database.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.id()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.Now()
	}
	s.acts = append(s.acts, a)
	return a
}

// SeedRepository stores a row as is, assigning ID and CreatedAt when zero.
func (s *MemStore) SeedRepository(r database.Repository) database.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.Now()
	}
	s.repos = append(s.repos, r)
	return r
}

// WithTx runs fn against the store and restores the previous state if fn fails.
func (s *MemStore) WithTx(ctx context.Context, fn func(q database.Querier) error) error {
	s.mu.Lock()
	snapshot := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

type memState struct {
	repos    []database.Repository
	branches []database.Branch
	acts     []database.Activity
	tracked  []database.TrackedRepository
	writes   int
}

func (s *MemStore) snapshot() memState {
	return memState{
		repos:    append([]database.Repository(nil), s.repos...),
		branches: append([]database.Branch(nil), s.branches...),
		acts:     append([]database.Activity(nil), s.acts...),
		tracked:  append([]database.TrackedRepository(nil), s.tracked...),
		writes:   s.writes,
	}
}

func (s *MemStore) restore(st memState) {
	s.repos, s.branches, s.acts, s.tracked, s.writes = st.repos, st.branches, st.acts, st.tracked, st.writes
}

func (s *MemStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemStore) fail(method string) error {
	return s.failures[method]
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "insert or update violates foreign key constraint"}
}

// --- repositories ---

func (s *MemStore) findRepo(match func(database.Repository) bool) int {
	for i, r := range s.repos {
		if match(r) {
			return i
		}
	}
	return -1
}

func (s *MemStore) GetRepository(ctx context.Context, id int64) (database.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetRepository"); err != nil {
		return database.Repository{}, err
	}
	if i := s.findRepo(func(r database.Repository) bool { return r.ID == id }); i >= 0 {
		return s.repos[i], nil
	}
	return database.Repository{}, pgx.ErrNoRows
}

func (s *MemStore) GetRepositoryByGithubID(ctx context.Context, githubID pgtype.Int8) (database.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetRepositoryByGithubID"); err != nil {
		return database.Repository{}, err
	}
	if !githubID.Valid {
		return database.Repository{}, pgx.ErrNoRows
	}
	if i := s.findRepo(func(r database.Repository) bool { return r.GithubID == githubID }); i >= 0 {
		return s.repos[i], nil
	}
	return database.Repository{}, pgx.ErrNoRows
}

func (s *MemStore) GetRepositoryByFullName(ctx context.Context, fullName string) (database.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetRepositoryByFullName"); err != nil {
		return database.Repository{}, err
	}
	if i := s.findRepo(func(r database.Repository) bool { return r.FullName == fullName }); i >= 0 {
		return s.repos[i], nil
	}
	return database.Repository{}, pgx.ErrNoRows
}

func (s *MemStore) ClaimRepositoryGithubID(ctx context.Context, arg database.ClaimRepositoryGithubIDParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ClaimRepositoryGithubID"); err != nil {
		return 0, err
	}
	i := s.findRepo(func(r database.Repository) bool { return strings.EqualFold(r.FullName, arg.FullName) && !r.GithubID.Valid })
	if i < 0 {
		return 0, nil
	}
	if arg.GithubID.Valid && s.findRepo(func(r database.Repository) bool { return r.GithubID == arg.GithubID }) >= 0 {
		return 0, uniqueViolation("repositories_github_id_key")
	}
	s.repos[i].GithubID = arg.GithubID
	s.writes++
	return 1, nil
}

func (s *MemStore) UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (database.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertRepository"); err != nil {
		return database.Repository{}, err
	}
	now := pgtype.Timestamptz{Time: s.Now(), Valid: true}

	existing := -1
	if arg.GithubID.Valid {
		existing = s.findRepo(func(r database.Repository) bool { return r.GithubID == arg.GithubID })
	}
	clash := s.findRepo(func(r database.Repository) bool { return r.FullName == arg.FullName })
	if clash >= 0 && clash != existing {
		return database.Repository{}, uniqueViolation("repositories_full_name_key")
	}

	if existing >= 0 {
		r := &s.repos[existing]
		r.Name, r.FullName, r.Owner, r.Url = arg.Name, arg.FullName, arg.Owner, arg.Url
		r.Description, r.Stars, r.Forks, r.Language = arg.Description, arg.Stars, arg.Forks, arg.Language
		r.DefaultBranch = arg.DefaultBranch
		r.LastUpdated = now
		s.writes++
		return *r, nil
	}

	r := database.Repository{
		ID:            s.id(),
		GithubID:      arg.GithubID,
		Name:          arg.Name,
		FullName:      arg.FullName,
		Owner:         arg.Owner,
		Url:           arg.Url,
		Description:   arg.Description,
		Stars:         arg.Stars,
		Forks:         arg.Forks,
		Language:      arg.Language,
		DefaultBranch: arg.DefaultBranch,
		LastUpdated:   now,
		CreatedAt:     now.Time,
	}
	s.repos = append(s.repos, r)
	s.writes++
	return r, nil
}

func (s *MemStore) CreateRepository(ctx context.Context, arg database.CreateRepositoryParams) (database.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateRepository"); err != nil {
		return database.Repository{}, err
	}
	if s.findRepo(func(r database.Repository) bool { return r.FullName == arg.FullName }) >= 0 {
		return database.Repository{}, uniqueViolation("repositories_full_name_key")
	}
	if arg.GithubID.Valid && s.findRepo(func(r database.Repository) bool { return r.GithubID == arg.GithubID }) >= 0 {
		return database.Repository{}, uniqueViolation("repositories_github_id_key")
	}
	now := s.Now()
	r := database.Repository{
		ID:          s.id(),
		GithubID:    arg.GithubID,
		Name:        arg.Name,
		FullName:    arg.FullName,
		Owner:       arg.Owner,
		Url:         arg.Url,
		Description: arg.Description,
		Stars:       arg.Stars,
		Forks:       arg.Forks,
		Language:    arg.Language,
		LastUpdated: pgtype.Timestamptz{Time: now, Valid: true},
		CreatedAt:   now,
	}
	s.repos = append(s.repos, r)
	s.writes++
	return r, nil
}

func (s *MemStore) UpdateRepositoryDescription(ctx context.Context, arg database.UpdateRepositoryDescriptionParams) (database.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateRepositoryDescription"); err != nil {
		return database.Repository{}, err
	}
	i := s.findRepo(func(r database.Repository) bool { return r.ID == arg.ID })
	if i < 0 {
		return database.Repository{}, pgx.ErrNoRows
	}
	if arg.Description.Valid {
		s.repos[i].Description = arg.Description
	}
	s.repos[i].LastUpdated = pgtype.Timestamptz{Time: s.Now(), Valid: true}
	s.writes++
	return s.repos[i], nil
}

func (s *MemStore) DeleteRepository(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteRepository"); err != nil {
		return 0, err
	}
	i := s.findRepo(func(r database.Repository) bool { return r.ID == id })
	if i < 0 {
		return 0, nil
	}
	s.repos = append(s.repos[:i], s.repos[i+1:]...)

	branches := s.branches[:0]
	for _, b := range s.branches {
		if b.RepositoryID != id {
			branches = append(branches, b)
		}
	}
	s.branches = branches

	acts := s.acts[:0]
	for _, a := range s.acts {
		if a.RepositoryID != id {
			acts = append(acts, a)
		}
	}
	s.acts = acts

	tracked := s.tracked[:0]
	for _, t := range s.tracked {
		if t.RepositoryID != id {
			tracked = append(tracked, t)
		}
	}
	s.tracked = tracked

	s.writes++
	return 1, nil
}

func (s *MemStore) MarkRepositorySynced(ctx context.Context, arg database.MarkRepositorySyncedParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkRepositorySynced"); err != nil {
		return err
	}
	if i := s.findRepo(func(r database.Repository) bool { return r.ID == arg.ID }); i >= 0 {
		s.repos[i].LastSyncedAt = arg.LastSyncedAt
		s.writes++
	}
	return nil
}

func (s *MemStore) matchingRepos(pattern pgtype.Text) []database.Repository {
	var out []database.Repository
	for _, r := range s.repos {
		if !pattern.Valid || ilike(r.Name, pattern.String) || ilike(r.Owner, pattern.String) || ilike(r.FullName, pattern.String) {
			out = append(out, r)
		}
	}
	return out
}

func (s *MemStore) ListRepositories(ctx context.Context, arg database.ListRepositoriesParams) ([]database.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListRepositories"); err != nil {
		return nil, err
	}
	rows := s.matchingRepos(arg.Pattern)
	recency := func(r database.Repository) time.Time {
		if r.LastUpdated.Valid {
			return r.LastUpdated.Time
		}
		return r.CreatedAt
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := recency(rows[i]), recency(rows[j])
		if !ri.Equal(rj) {
			return ri.After(rj)
		}
		return rows[i].ID > rows[j].ID
	})
	return window(rows, arg.PageLimit, arg.PageOffset), nil
}

func (s *MemStore) CountRepositories(ctx context.Context, pattern pgtype.Text) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CountRepositories"); err != nil {
		return 0, err
	}
	return int64(len(s.matchingRepos(pattern))), nil
}

// --- branches ---

func (s *MemStore) upsertBranch(repositoryID int64, name string, sha pgtype.Text, protected *bool) (database.Branch, error) {
	if s.findRepo(func(r database.Repository) bool { return r.ID == repositoryID }) < 0 {
		return database.Branch{}, foreignKeyViolation("branches_repository_id_fkey")
	}
	for i := range s.branches {
		b := &s.branches[i]
		if b.RepositoryID == repositoryID && b.Name == name {
			if sha.Valid {
				b.LastCommitSha = sha
			}
			if protected != nil {
				b.IsProtected = *protected
			}
			s.writes++
			return *b, nil
		}
	}
	b := database.Branch{
		ID:            s.id(),
		RepositoryID:  repositoryID,
		Name:          name,
		LastCommitSha: sha,
		CreatedAt:     s.Now(),
	}
	if protected != nil {
		b.IsProtected = *protected
	}
	s.branches = append(s.branches, b)
	s.writes++
	return b, nil
}

func (s *MemStore) TouchBranch(ctx context.Context, arg database.TouchBranchParams) (database.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("TouchBranch"); err != nil {
		return database.Branch{}, err
	}
	return s.upsertBranch(arg.RepositoryID, arg.Name, arg.LastCommitSha, nil)
}

func (s *MemStore) CreateBranch(ctx context.Context, arg database.CreateBranchParams) (database.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateBranch"); err != nil {
		return database.Branch{}, err
	}
	protected := arg.IsProtected
	return s.upsertBranch(arg.RepositoryID, arg.Name, arg.LastCommitSha, &protected)
}

func (s *MemStore) ListBranchesByRepository(ctx context.Context, repositoryID int64) ([]database.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListBranchesByRepository"); err != nil {
		return nil, err
	}
	var out []database.Branch
	for _, b := range s.branches {
		if b.RepositoryID == repositoryID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- activities ---

func (s *MemStore) InsertActivity(ctx context.Context, arg database.InsertActivityParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertActivity"); err != nil {
		return 0, err
	}
	for _, a := range s.acts {
		if a.NaturalKey == arg.NaturalKey {
			return 0, pgx.ErrNoRows
		}
	}
	if s.findRepo(func(r database.Repository) bool { return r.ID == arg.RepositoryID }) < 0 {
		return 0, foreignKeyViolation("activities_repository_id_fkey")
	}
	a := database.Activity{
		ID:           s.id(),
		NaturalKey:   arg.NaturalKey,
		ActivityType: arg.ActivityType,
		Actor:        arg.Actor,
		Action:       arg.Action,
		Ref:          arg.Ref,
		OccurredAt:   arg.OccurredAt,
		Payload:      append([]byte(nil), arg.Payload...),
		RepositoryID: arg.RepositoryID,
		BranchID:     arg.BranchID,
		CreatedAt:    s.Now(),
	}
	s.acts = append(s.acts, a)
	s.writes++
	return a.ID, nil
}

func (s *MemStore) GetActivityByNaturalKey(ctx context.Context, naturalKey string) (database.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetActivityByNaturalKey"); err != nil {
		return database.Activity{}, err
	}
	for _, a := range s.acts {
		if a.NaturalKey == naturalKey {
			return a, nil
		}
	}
	return database.Activity{}, pgx.ErrNoRows
}

type activityFilter struct {
	repositoryID pgtype.Int8
	activityType database.NullActivityType
	actorPattern pgtype.Text
	startAt      pgtype.Timestamptz
	endAt        pgtype.Timestamptz
}

func (f activityFilter) match(a database.Activity) bool {
	if f.repositoryID.Valid && a.RepositoryID != f.repositoryID.Int64 {
		return false
	}
	if f.activityType.Valid && a.ActivityType != f.activityType.ActivityType {
		return false
	}
	if f.actorPattern.Valid && !ilike(a.Actor, f.actorPattern.String) {
		return false
	}
	if f.startAt.Valid && a.OccurredAt.Before(f.startAt.Time) {
		return false
	}
	if f.endAt.Valid && a.OccurredAt.After(f.endAt.Time) {
		return false
	}
	return true
}

func (s *MemStore) filterActivities(f activityFilter) []database.Activity {
	var out []database.Activity
	for _, a := range s.acts {
		if f.match(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *MemStore) ListActivities(ctx context.Context, arg database.ListActivitiesParams) ([]database.ListActivitiesRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListActivities"); err != nil {
		return nil, err
	}
	acts := s.filterActivities(activityFilter{arg.RepositoryID, arg.ActivityType, arg.ActorPattern, arg.StartAt, arg.EndAt})
	sort.SliceStable(acts, func(i, j int) bool {
		if !acts[i].OccurredAt.Equal(acts[j].OccurredAt) {
			return acts[i].OccurredAt.After(acts[j].OccurredAt)
		}
		return acts[i].ID < acts[j].ID
	})
	acts = window(acts, arg.PageLimit, arg.PageOffset)

	rows := make([]database.ListActivitiesRow, 0, len(acts))
	for _, a := range acts {
		row := database.ListActivitiesRow{
			ID:           a.ID,
			NaturalKey:   a.NaturalKey,
			ActivityType: a.ActivityType,
			Actor:        a.Actor,
			Action:       a.Action,
			Ref:          a.Ref,
			OccurredAt:   a.OccurredAt,
			Payload:      a.Payload,
			RepositoryID: a.RepositoryID,
			BranchID:     a.BranchID,
			CreatedAt:    a.CreatedAt,
		}
		if i := s.findRepo(func(r database.Repository) bool { return r.ID == a.RepositoryID }); i >= 0 {
			r := s.repos[i]
			row.RepositoryName, row.RepositoryFullName, row.RepositoryOwner, row.RepositoryUrl = r.Name, r.FullName, r.Owner, r.Url
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *MemStore) CountActivities(ctx context.Context, arg database.CountActivitiesParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CountActivities"); err != nil {
		return 0, err
	}
	return int64(len(s.filterActivities(activityFilter{arg.RepositoryID, arg.ActivityType, arg.ActorPattern, arg.StartAt, arg.EndAt}))), nil
}

func (s *MemStore) CountActivitiesByType(ctx context.Context) ([]database.CountActivitiesByTypeRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CountActivitiesByType"); err != nil {
		return nil, err
	}
	counts := make(map[database.ActivityType]int64)
	var order []database.ActivityType
	for _, a := range s.acts {
		if _, ok := counts[a.ActivityType]; !ok {
			order = append(order, a.ActivityType)
		}
		counts[a.ActivityType]++
	}
	rows := make([]database.CountActivitiesByTypeRow, 0, len(order))
	for _, t := range order {
		rows = append(rows, database.CountActivitiesByTypeRow{ActivityType: t, Total: counts[t]})
	}
	return rows, nil
}

func (s *MemStore) CountDistinctActors(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CountDistinctActors"); err != nil {
		return 0, err
	}
	seen := make(map[string]struct{})
	for _, a := range s.acts {
		seen[a.Actor] = struct{}{}
	}
	return int64(len(seen)), nil
}

// --- tracking ---

func (s *MemStore) TrackRepository(ctx context.Context, arg database.TrackRepositoryParams) (database.TrackedRepository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("TrackRepository"); err != nil {
		return database.TrackedRepository{}, err
	}
	if s.findRepo(func(r database.Repository) bool { return r.ID == arg.RepositoryID }) < 0 {
		return database.TrackedRepository{}, foreignKeyViolation("tracked_repositories_repository_id_fkey")
	}
	for i := range s.tracked {
		t := &s.tracked[i]
		if t.UserID == arg.UserID && t.RepositoryID == arg.RepositoryID {
			t.OwnershipType = arg.OwnershipType
			s.writes++
			return *t, nil
		}
	}
	t := database.TrackedRepository{
		ID:            s.id(),
		UserID:        arg.UserID,
		RepositoryID:  arg.RepositoryID,
		OwnershipType: arg.OwnershipType,
		AddedAt:       s.Now(),
	}
	s.tracked = append(s.tracked, t)
	s.writes++
	return t, nil
}

func (s *MemStore) UntrackRepository(ctx context.Context, arg database.UntrackRepositoryParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UntrackRepository"); err != nil {
		return 0, err
	}
	for i, t := range s.tracked {
		if t.UserID == arg.UserID && t.RepositoryID == arg.RepositoryID {
			s.tracked = append(s.tracked[:i], s.tracked[i+1:]...)
			s.writes++
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemStore) ListTrackedRepositories(ctx context.Context, userID int64) ([]database.TrackedRepository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListTrackedRepositories"); err != nil {
		return nil, err
	}
	var out []database.TrackedRepository
	for _, t := range s.tracked {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.After(out[j].AddedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func window[T any](rows []T, limit, offset int32) []T {
	if int(offset) >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// ilike emulates Postgres ILIKE with the default backslash escape.
func ilike(value, pattern string) bool {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String()).MatchString(value)
}
