package activitymap

import (
	"context"
	"maps"
	"strings"
	"time"

	auth "github.com/goliatone/go-credauth"
)

const (
	// MetadataKeyActorType stores auth.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyUsername stores the username the event refers to.
	MetadataKeyUsername = "username"
	// MetadataKeyOutcome is "success" or "failure" for login events.
	MetadataKeyOutcome = "outcome"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "system"
)

// Record is a flat activity shape for audit stores and log pipelines.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*options)

type options struct {
	channel       string
	objectType    string
	actorFallback string
}

// WithChannel sets the channel stamped on every record.
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType sets the object type stamped on every record.
func WithObjectType(objectType string) Option {
	return func(o *options) {
		o.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when neither actor nor user ids are known.
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		o.actorFallback = strings.TrimSpace(actorID)
	}
}

// Normalize converts an auth.ActivityEvent into a Record. The event metadata
// is copied, never modified.
func Normalize(event auth.ActivityEvent, opts ...Option) Record {
	o := options{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return Record{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.Actor.ID),
			strings.TrimSpace(event.UserID),
			o.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   firstNonEmpty(strings.TrimSpace(event.UserID), strings.TrimSpace(event.Username)),
		Channel:    o.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// Sink returns an auth.ActivitySink that normalizes each event before
// handing it to fn.
func Sink(fn func(ctx context.Context, record Record) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if fn == nil {
			return nil
		}
		return fn(ctx, Normalize(event, opts...))
	})
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := maps.Clone(event.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		set(MetadataKeyActorType, actorType)
	}

	if event.Username != "" {
		set(MetadataKeyUsername, event.Username)
	}

	switch event.EventType {
	case auth.ActivityEventLoginSuccess:
		set(MetadataKeyOutcome, "success")
	case auth.ActivityEventLoginFailure:
		set(MetadataKeyOutcome, "failure")
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
