package services

import (
	"context"

	"github.com/tbourn/go-codeshare-backend/internal/events"
)

// notifier wraps an events.Publisher that may be nil.
type notifier struct {
	pub events.Publisher
}

func (n notifier) emit(ctx context.Context, e events.Event) {
	if n.pub == nil {
		return
	}
	n.pub.Publish(ctx, e)
}

// ok announces a successful user operation.
func (n notifier) ok(ctx context.Context, userID, message string) {
	n.emit(ctx, events.Succeeded(userID, message))
}

// failed announces a failed user operation and returns err unchanged.
func (n notifier) failed(ctx context.Context, userID, action string, err error) error {
	if err == nil || userID == "" {
		return err
	}
	n.emit(ctx, events.Failed(userID, "Error "+action+": "+UserMessage(err), string(KindOf(err))))
	return err
}
