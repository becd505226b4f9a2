// Package events carries typed state-change notifications from the core to
// presentation adapters. Events are best effort: a subscriber that falls
// behind loses events and is expected to re-fetch.
package events

import (
	"context"
	"time"
)

// Type names an event kind on the wire.
type Type string

const (
	CodeListChanged    Type = "code_list_changed"
	UserPointsChanged  Type = "user_points_changed"
	SessionChanged     Type = "session_changed"
	OperationSucceeded Type = "operation_succeeded"
	OperationFailed    Type = "operation_failed"
)

// Event is a single notification. An empty UserID means broadcast; otherwise
// only that user's subscribers receive it.
type Event struct {
	Type          Type      `json:"type"`
	UserID        string    `json:"user_id,omitempty"`
	Points        *int64    `json:"points,omitempty"`
	Authenticated *bool     `json:"authenticated,omitempty"`
	IsAdmin       *bool     `json:"is_admin,omitempty"`
	Message       string    `json:"message,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	At            time.Time `json:"at"`

	// Origin identifies the publishing instance for cross-instance fan-out.
	Origin string `json:"origin,omitempty"`
}

// VisibleTo reports whether a subscriber bound to userID ("" for anonymous)
// should receive e.
func (e Event) VisibleTo(userID string) bool {
	return e.UserID == "" || e.UserID == userID
}

// Publisher accepts events. Implementations must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event)

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, e Event) { f(ctx, e) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) {})

func CodesChanged() Event {
	return Event{Type: CodeListChanged, At: time.Now().UTC()}
}

func PointsChanged(userID string, points int64) Event {
	return Event{Type: UserPointsChanged, UserID: userID, Points: &points, At: time.Now().UTC()}
}

func SessionState(userID string, authenticated, isAdmin bool) Event {
	return Event{Type: SessionChanged, UserID: userID, Authenticated: &authenticated, IsAdmin: &isAdmin, At: time.Now().UTC()}
}

func Succeeded(userID, message string) Event {
	return Event{Type: OperationSucceeded, UserID: userID, Message: message, At: time.Now().UTC()}
}

func Failed(userID, message, kind string) Event {
	return Event{Type: OperationFailed, UserID: userID, Message: message, Kind: kind, At: time.Now().UTC()}
}
