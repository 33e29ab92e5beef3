// Package blobstore persists a user's full state triple as one JSON blob per
// user. Three interchangeable backends: Redis, Postgres and S3-compatible
// object storage.
package blobstore

import (
	"context"

	"daymark/api/internal/habits"
)

// Store is the blob persistence contract. Read returns (nil, nil) when the
// user has no data yet; every mutation is a whole-blob replace, last writer
// wins.
type Store interface {
	Read(ctx context.Context, userID string) (*habits.Data, error)
	Write(ctx context.Context, userID string, data habits.Data) error
	Ping(ctx context.Context) error
}
