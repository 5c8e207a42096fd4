// internal/github/client.go
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "github-activity-feed/internal/errors"
	"github-activity-feed/internal/model"
)

const (
	defaultTimeout = 30 * time.Second
	perPage        = 100
)

// EventKind tells which upstream record a RawEvent wraps.
type EventKind string

const (
	KindCommit EventKind = "commit"
	KindIssue  EventKind = "issue"
	KindEvent  EventKind = "event"
)

// supportedEvents are the repository event types the feed understands.
var supportedEvents = map[string]bool{
	"PushEvent":   true,
	"CreateEvent": true,
	"DeleteEvent": true,
	"ForkEvent":   true,
	"WatchEvent":  true,
}

// RawEvent is one upstream record, exactly one of Commit, Issue or Event
// is set according to Kind. Raw holds the record exactly as GitHub sent it.
type RawEvent struct {
	Kind   EventKind
	Commit *github.RepositoryCommit
	Issue  *github.Issue
	Event  *github.Event
	Raw    json.RawMessage
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh      *github.Client
	logger  *slog.Logger
	timeout time.Duration
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. GitHub
// Enterprise or a test server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates and configures a new Client instance.
// A non-empty token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	c := &Client{
		gh:      github.NewClient(httpClient),
		logger:  logger,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL != "" {
		base := c.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		c.gh.BaseURL = u
	}
	return c, nil
}

// GetRepository fetches repository metadata.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.RepositoryMetadata, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	repo, _, err := c.gh.Repositories.Get(reqCtx, owner, name)
	if err != nil {
		var er *github.ErrorResponse
		if errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound {
			return nil, &custom_errors.ErrRepositoryNotFound{FullName: owner + "/" + name}
		}
		return nil, upstreamError("get repository", err)
	}
	return toRepositoryMetadata(repo), nil
}

// RecentEvents streams commits, issues and repository events newer than
// since, in that order. Pages are requested as the consumer iterates.
//
// A failing category yields a single *errors.ErrUpstream and the stream
// moves on to the next category. If ctx ends, its error is yielded last.
func (c *Client) RecentEvents(ctx context.Context, owner, name string, since time.Time) iter.Seq2[RawEvent, error] {
	return func(yield func(RawEvent, error) bool) {
		categories := []struct {
			op    string
			fetch pageFunc
		}{
			{"list commits", c.commitPage(owner, name, since)},
			{"list issues", c.issuePage(owner, name, since)},
			{"list repository events", c.eventPage(owner, name, since)},
		}

		for _, cat := range categories {
			if err := ctx.Err(); err != nil {
				yield(RawEvent{}, err)
				return
			}
			more, err := c.drain(ctx, cat.op, cat.fetch, yield)
			if !more {
				return
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(RawEvent{}, ctxErr)
					return
				}
				c.logger.Warn("Fetching category failed", "owner", owner, "repo", name, "op", cat.op, "error", err)
				if !yield(RawEvent{}, err) {
					return
				}
			}
		}
	}
}

// pageFunc fetches one page. done reports that no later page is relevant.
type pageFunc func(ctx context.Context, page int) (events []RawEvent, next int, done bool, err error)

// drain walks every page of one category. It returns false once the
// consumer stops iterating.
func (c *Client) drain(ctx context.Context, op string, fetch pageFunc, yield func(RawEvent, error) bool) (bool, error) {
	page := 0
	for {
		c.logger.Debug("Fetching page", "op", op, "page", page)

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		events, next, done, err := fetch(reqCtx, page)
		cancel()
		if err != nil {
			return true, upstreamError(op, err)
		}

		for _, ev := range events {
			if !yield(ev, nil) {
				return false, nil
			}
		}

		if done || next == 0 {
			return true, nil
		}
		page = next
	}
}

func (c *Client) commitPage(owner, name string, since time.Time) pageFunc {
	return func(ctx context.Context, page int) ([]RawEvent, int, bool, error) {
		q := listQuery(page)
		if !since.IsZero() {
			q.Set("since", since.UTC().Format(time.RFC3339))
		}
		raws, resp, err := c.listRaw(ctx, repoPath(owner, name, "commits"), q)
		if err != nil {
			// An empty repository answers 409 Conflict.
			var er *github.ErrorResponse
			if errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusConflict {
				return nil, 0, true, nil
			}
			return nil, 0, false, err
		}

		events := make([]RawEvent, 0, len(raws))
		for _, raw := range raws {
			var commit github.RepositoryCommit
			if !c.decode("list commits", raw, &commit) {
				continue
			}
			events = append(events, RawEvent{Kind: KindCommit, Commit: &commit, Raw: raw})
		}
		return events, resp.NextPage, false, nil
	}
}

func (c *Client) issuePage(owner, name string, since time.Time) pageFunc {
	return func(ctx context.Context, page int) ([]RawEvent, int, bool, error) {
		q := listQuery(page)
		q.Set("state", "all")
		if !since.IsZero() {
			q.Set("since", since.UTC().Format(time.RFC3339))
		}
		raws, resp, err := c.listRaw(ctx, repoPath(owner, name, "issues"), q)
		if err != nil {
			return nil, 0, false, err
		}

		events := make([]RawEvent, 0, len(raws))
		for _, raw := range raws {
			var issue github.Issue
			if !c.decode("list issues", raw, &issue) {
				continue
			}
			events = append(events, RawEvent{Kind: KindIssue, Issue: &issue, Raw: raw})
		}
		return events, resp.NextPage, false, nil
	}
}

// eventPage pages repository events, newest first, until one predates since.
func (c *Client) eventPage(owner, name string, since time.Time) pageFunc {
	return func(ctx context.Context, page int) ([]RawEvent, int, bool, error) {
		raws, resp, err := c.listRaw(ctx, repoPath(owner, name, "events"), listQuery(page))
		if err != nil {
			return nil, 0, false, err
		}

		events := make([]RawEvent, 0, len(raws))
		for _, raw := range raws {
			var ev github.Event
			if !c.decode("list repository events", raw, &ev) {
				continue
			}
			if ev.GetCreatedAt().Time.Before(since) {
				return events, 0, true, nil
			}
			if !supportedEvents[ev.GetType()] {
				continue
			}
			events = append(events, RawEvent{Kind: KindEvent, Event: &ev, Raw: raw})
		}
		return events, resp.NextPage, false, nil
	}
}

// listRaw fetches one list page and keeps every element exactly as sent.
func (c *Client) listRaw(ctx context.Context, path string, q url.Values) ([]json.RawMessage, *github.Response, error) {
	req, err := c.gh.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}
	var raws []json.RawMessage
	resp, err := c.gh.Do(ctx, req, &raws)
	if err != nil {
		return nil, resp, err
	}
	return raws, resp, nil
}

// decode reads one list element into v. Undecodable elements are logged and skipped.
func (c *Client) decode(op string, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		c.logger.Warn("Skipping undecodable record", "op", op, "error", err)
		return false
	}
	return true
}

func repoPath(owner, name, resource string) string {
	return fmt.Sprintf("repos/%s/%s/%s", url.PathEscape(owner), url.PathEscape(name), resource)
}

func listQuery(page int) url.Values {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

// upstreamError classifies a go-github failure.
func upstreamError(op string, err error) error {
	ue := &custom_errors.ErrUpstream{Op: op, Err: err}

	var rle *github.RateLimitError
	var are *github.AbuseRateLimitError
	var er *github.ErrorResponse
	switch {
	case errors.As(err, &rle):
		ue.RateLimited = true
		ue.ResetAt = rle.Rate.Reset.Time
		if rle.Response != nil {
			ue.StatusCode = rle.Response.StatusCode
		}
	case errors.As(err, &are):
		ue.RateLimited = true
		ue.ResetAt = time.Now().Add(are.GetRetryAfter())
		if are.Response != nil {
			ue.StatusCode = are.Response.StatusCode
		}
	case errors.As(err, &er):
		if er.Response != nil {
			ue.StatusCode = er.Response.StatusCode
		}
	}
	return ue
}

// toRepositoryMetadata translates a github.Repository to our metadata model.
func toRepositoryMetadata(r *github.Repository) *model.RepositoryMetadata {
	return &model.RepositoryMetadata{
		GithubID:      r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		URL:           r.GetHTMLURL(),
		Description:   r.Description,
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		Language:      r.Language,
		DefaultBranch: r.GetDefaultBranch(),
	}
}
