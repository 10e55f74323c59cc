package events

import (
	"context"
	"log/slog"
	"sync"
)

var (
	mu   sync.RWMutex
	sink = logEvent
)

// Emit publishes evt under name to the installed sink. The build id stored in
// ctx is attached when the event does not carry one.
func Emit(ctx context.Context, name string, evt BuildEvent) {
	if evt.BuildID == "" {
		evt.BuildID = BuildFromContext(ctx)
	}
	mu.RLock()
	f := sink
	mu.RUnlock()
	f(ctx, name, evt)
}

// SetCustomEmitter replaces the sink. Passing nil restores slog output.
func SetCustomEmitter(f func(ctx context.Context, name string, evt BuildEvent)) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		sink = logEvent
		return
	}
	sink = f
}

func logEvent(ctx context.Context, name string, evt BuildEvent) {
	attrs := []any{"event", name}
	if evt.BuildID != "" {
		attrs = append(attrs, "build", evt.BuildID)
	}
	for k, v := range evt.Metadata {
		attrs = append(attrs, k, v)
	}

	switch evt.Type {
	case EventError:
		slog.ErrorContext(ctx, evt.Message, attrs...)
	case EventWarn:
		slog.WarnContext(ctx, evt.Message, attrs...)
	default:
		slog.InfoContext(ctx, evt.Message, attrs...)
	}
}
