// Package normalizer maps upstream GitHub records onto the unified activity
// taxonomy. It never fails: missing fields fall back to neutral values.
package normalizer

import (
	"strconv"
	"strings"

	gh "github.com/google/go-github/v62/github"

	"github-activity-feed/internal/github"
	"github-activity-feed/internal/model"
)

// Column bounds, counted in runes.
const (
	MaxRefLength   = 100
	MaxActorLength = 100
)

const unknownActor = "Unknown"

// Normalize converts one raw upstream record into an Activity. Repository
// and branch ids are left for the caller to fill in.
func Normalize(ev github.RawEvent) model.Activity {
	var a model.Activity
	switch {
	case ev.Kind == github.KindCommit && ev.Commit != nil:
		a = fromCommit(ev.Commit)
	case ev.Kind == github.KindIssue && ev.Issue != nil:
		a = fromIssue(ev.Issue)
	case ev.Event != nil:
		a = fromEvent(ev.Event)
	default:
		a = model.Activity{Type: model.ActivityPush, Action: "pushed", Actor: unknownActor}
	}
	a.Ref = truncate(a.Ref, MaxRefLength)
	a.Actor = truncate(a.Actor, MaxActorLength)
	a.Payload = model.Payload(ev.Raw)
	return a
}

func fromCommit(c *gh.RepositoryCommit) model.Activity {
	actor := c.GetAuthor().GetLogin()
	if actor == "" {
		actor = c.GetCommit().GetAuthor().GetName()
	}
	if actor == "" {
		actor = unknownActor
	}

	occurred := c.GetCommit().GetAuthor().GetDate().Time
	if occurred.IsZero() {
		occurred = c.GetCommit().GetCommitter().GetDate().Time
	}

	return model.Activity{
		NaturalKey: "commit_" + c.GetSHA(),
		Type:       model.ActivityCommit,
		Actor:      actor,
		Action:     "pushed",
		Ref:        c.GetCommit().GetMessage(),
		OccurredAt: occurred,
	}
}

func fromIssue(i *gh.Issue) model.Activity {
	t := model.ActivityIssue
	if i.IsPullRequest() {
		t = model.ActivityPullRequest
	}
	action := "closed"
	if i.GetState() == "open" {
		action = "opened"
	}
	actor := i.GetUser().GetLogin()
	if actor == "" {
		actor = unknownActor
	}

	return model.Activity{
		NaturalKey: "issue_" + strconv.FormatInt(i.GetID(), 10),
		Type:       t,
		Actor:      actor,
		Action:     action,
		Ref:        i.GetTitle(),
		OccurredAt: i.GetCreatedAt().Time,
	}
}

func fromEvent(e *gh.Event) model.Activity {
	actor := e.GetActor().GetLogin()
	if actor == "" {
		actor = unknownActor
	}
	a := model.Activity{
		NaturalKey: "event_" + e.GetID(),
		Actor:      actor,
		OccurredAt: e.GetCreatedAt().Time,
	}

	payload, _ := e.ParsePayload()
	switch e.GetType() {
	case "CreateEvent":
		a.Type, a.Action = model.ActivityCreate, "created"
		if p, ok := payload.(*gh.CreateEvent); ok {
			a.Ref = p.GetRef()
			if p.GetRefType() == "branch" {
				a.BranchName = p.GetRef()
			}
		}
	case "DeleteEvent":
		a.Type, a.Action = model.ActivityDelete, "deleted"
		if p, ok := payload.(*gh.DeleteEvent); ok {
			a.Ref = p.GetRef()
			if p.GetRefType() == "branch" {
				a.BranchName = p.GetRef()
			}
		}
	case "ForkEvent":
		a.Type, a.Action = model.ActivityFork, "forked"
		if p, ok := payload.(*gh.ForkEvent); ok {
			a.Ref = p.GetForkee().GetFullName()
		}
	case "WatchEvent":
		a.Type, a.Action = model.ActivityWatch, "starred"
	default:
		a.Type, a.Action = model.ActivityPush, "pushed"
		if p, ok := payload.(*gh.PushEvent); ok {
			a.Ref = p.GetRef()
			a.BranchName = branchFromRef(p.GetRef())
		}
	}
	return a
}

// branchFromRef returns the branch name of a refs/heads/ ref, or "".
func branchFromRef(ref string) string {
	name, ok := strings.CutPrefix(ref, "refs/heads/")
	if !ok {
		return ""
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
