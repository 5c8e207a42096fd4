package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActivityType is the unified activity taxonomy.
type ActivityType string

const (
	ActivityCommit      ActivityType = "commit"
	ActivityPush        ActivityType = "push"
	ActivityPullRequest ActivityType = "pull_request"
	ActivityIssue       ActivityType = "issue"
	ActivityCreate      ActivityType = "create"
	ActivityDelete      ActivityType = "delete"
	ActivityFork        ActivityType = "fork"
	ActivityWatch       ActivityType = "watch"
)

var activityTypes = []ActivityType{
	ActivityCommit, ActivityPush, ActivityPullRequest, ActivityIssue,
	ActivityCreate, ActivityDelete, ActivityFork, ActivityWatch,
}

// ActivityTypes returns the full taxonomy in declaration order.
func ActivityTypes() []ActivityType {
	out := make([]ActivityType, len(activityTypes))
	copy(out, activityTypes)
	return out
}

// ParseActivityType matches s exactly against the taxonomy.
func ParseActivityType(s string) (ActivityType, bool) {
	for _, t := range activityTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func (t ActivityType) Valid() bool {
	_, ok := ParseActivityType(string(t))
	return ok
}

// Role is the caller's authorization role. It is parsed once at the
// request boundary and compared as a typed value afterwards.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleViewer    Role = "viewer"
)

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleModerator:
		return RoleModerator, nil
	case RoleViewer:
		return RoleViewer, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// Caller identifies who invokes a mutating operation.
type Caller struct {
	UserID int64
	Role   Role
}

// OwnershipType tags how a user relates to a tracked repository.
type OwnershipType string

const (
	OwnershipTracking     OwnershipType = "tracking"
	OwnershipOwner        OwnershipType = "owner"
	OwnershipCollaborator OwnershipType = "collaborator"
)

// ParseOwnershipType accepts the tag case-insensitively; empty means tracking.
func ParseOwnershipType(s string) (OwnershipType, error) {
	switch OwnershipType(strings.ToLower(strings.TrimSpace(s))) {
	case "", OwnershipTracking:
		return OwnershipTracking, nil
	case OwnershipOwner:
		return OwnershipOwner, nil
	case OwnershipCollaborator:
		return OwnershipCollaborator, nil
	}
	return "", fmt.Errorf("unknown ownership type %q", s)
}

// Payload is an opaque JSON document kept exactly as received.
// The engine stores and returns it without interpreting it.
type Payload json.RawMessage

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = append((*p)[:0], data...)
	return nil
}

// Fields decodes the payload for display purposes.
func (p Payload) Fields() (map[string]any, error) {
	if len(p) == 0 {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
