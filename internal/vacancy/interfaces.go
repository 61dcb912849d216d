package vacancy

import (
	"context"
	"encoding/json"
	"time"
)

// SourceAdapter is the per-source capability contract: list external ids,
// fetch one raw record, and transform it into the canonical shape.
//
// Push-model sources (the messaging channel) implement Transform only and
// return ErrPushOnly from the fetch methods.
type SourceAdapter interface {
	Platform() Platform
	FetchListing(ctx context.Context, params SearchParams) ([]string, error)
	FetchDetail(ctx context.Context, id string) (json.RawMessage, error)
	Transform(raw json.RawMessage, regions RegionMapping) (Record, error)
}

// RegionMapping resolves a raw city string to a region name.
type RegionMapping interface {
	Region(city string) string
}

// Store persists canonical records idempotently, keyed by
// (platform, external id) and falling back to URL identity.
type Store interface {
	Upsert(ctx context.Context, rec Record) (created bool, err error)
	ListRecent(ctx context.Context, platform Platform, limit int) ([]Record, error)
	CountByPlatform(ctx context.Context, platform Platform) (int, error)
}

// Publisher pushes ingestion-report events to an event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces ingestion run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
