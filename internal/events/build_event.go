package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

// Event names, one per pipeline stage.
const (
	BuildGenerate = "events:build:generate"
	BuildPublish  = "events:build:publish"
	BuildHosting  = "events:build:hosting"
	BuildDone     = "events:build:done"
)

// BuildEvent is a progress notification emitted while a build runs.
type BuildEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	BuildID   string            `json:"buildId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type contextKey string

const buildContextKey contextKey = "appforge/events/build"

// WithBuild returns a derived context annotated with the given build id so
// emitters can scope payloads without threading the id through every call.
func WithBuild(ctx context.Context, buildID string) context.Context {
	if strings.TrimSpace(buildID) == "" {
		return ctx
	}
	return context.WithValue(ctx, buildContextKey, buildID)
}

func BuildFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(buildContextKey).(string); ok {
		return v
	}
	return ""
}

func CreateBuildEvent(eventType EventType, message string) BuildEvent {
	return BuildEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewInfo(message string) BuildEvent {
	return CreateBuildEvent(EventInfo, message)
}

func NewWarn(message string) BuildEvent {
	return CreateBuildEvent(EventWarn, message)
}

func NewError(message string) BuildEvent {
	return CreateBuildEvent(EventError, message)
}

func NewSuccess(message string) BuildEvent {
	return CreateBuildEvent(EventSuccess, message)
}

// With returns a copy of e carrying an extra metadata entry.
func (e BuildEvent) With(key, value string) BuildEvent {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	e.Metadata = meta
	return e
}
