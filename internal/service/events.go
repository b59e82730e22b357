package service

import (
	"context"
	"time"

	"github.com/dimmoon69/booktime/pkg/events"
	"github.com/dimmoon69/booktime/pkg/logging"
)

const publishTimeout = 5 * time.Second

// publish is best effort: the write it describes has already been committed.
func publish(ctx context.Context, p events.Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "topic", topic, "key", key, "error", err)
	}
}
