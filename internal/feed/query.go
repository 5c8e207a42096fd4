package feed

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	custom_errors "github-activity-feed/internal/errors"
	"github-activity-feed/internal/model"
)

const (
	DefaultActivityPageSize   = 50
	DefaultRepositoryPageSize = 20
	MaxPageSize               = 200
)

// ActivityQuery filters the activity feed. Zero values mean "no condition".
type ActivityQuery struct {
	Page         int
	PerPage      int
	RepositoryID *int64
	// Type is matched exactly; a value outside the taxonomy is ignored.
	Type  string
	Actor string
	Start *time.Time
	End   *time.Time
}

// RepositoryQuery filters the repository list.
type RepositoryQuery struct {
	Page    int
	PerPage int
	Search  string
}

// ParseActivityQuery reads page, per_page, repository_id, type, actor,
// start_date and end_date. Values that do not parse are dropped and
// returned as *errors.ErrValidation warnings; the query is still usable.
func ParseActivityQuery(v url.Values) (ActivityQuery, []error) {
	var q ActivityQuery
	var warnings []error

	q.Page, warnings = parseInt(v, "page", warnings)
	q.PerPage, warnings = parseInt(v, "per_page", warnings)

	if raw := strings.TrimSpace(v.Get("repository_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			warnings = append(warnings, &custom_errors.ErrValidation{Field: "repository_id", Value: raw, Reason: "not an integer"})
		} else {
			q.RepositoryID = &id
		}
	}

	if raw := strings.TrimSpace(v.Get("type")); raw != "" {
		if _, ok := model.ParseActivityType(raw); ok {
			q.Type = raw
		} else {
			warnings = append(warnings, &custom_errors.ErrValidation{Field: "type", Value: raw, Reason: "unknown activity type"})
		}
	}

	q.Actor = strings.TrimSpace(v.Get("actor"))
	q.Start, warnings = parseDate(v, "start_date", warnings)
	q.End, warnings = parseDate(v, "end_date", warnings)

	return q, warnings
}

// ParseRepositoryQuery reads page, per_page and search.
func ParseRepositoryQuery(v url.Values) (RepositoryQuery, []error) {
	var q RepositoryQuery
	var warnings []error

	q.Page, warnings = parseInt(v, "page", warnings)
	q.PerPage, warnings = parseInt(v, "per_page", warnings)
	q.Search = strings.TrimSpace(v.Get("search"))

	return q, warnings
}

func parseInt(v url.Values, key string, warnings []error) (int, []error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return 0, warnings
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, append(warnings, &custom_errors.ErrValidation{Field: key, Value: raw, Reason: "not an integer"})
	}
	return n, warnings
}

// parseDate accepts most common date layouts. Values without a zone are UTC.
func parseDate(v url.Values, key string, warnings []error) (*time.Time, []error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, warnings
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return nil, append(warnings, &custom_errors.ErrValidation{Field: key, Value: raw, Reason: "unrecognized date"})
	}
	return &t, warnings
}

// pageWindow clamps page and size and returns the row offset.
func pageWindow(page, perPage, def int) (int, int, int64) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = def
	}
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}
	return page, perPage, int64(page-1) * int64(perPage)
}

func pageCount(total int64, size int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// containsPattern builds an ILIKE pattern matching s as a literal substring.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
