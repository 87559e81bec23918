// Package library persists users' saved items and answers their search queries.
package library

import (
	"context"
	"errors"

	"digestbot/types"
)

var (
	// ErrNotFound is returned when an item does not exist for the given user.
	ErrNotFound = errors.New("library item not found")
	// ErrInvalidQuery wraps search query syntax errors.
	ErrInvalidQuery = errors.New("invalid search query")
)

// Store is the library persistence used by the digest pipeline, the feed
// ingester and the HTTP API.
type Store interface {
	Search(ctx context.Context, userID string, opts types.SearchOptions) ([]types.LibraryItem, error)
	Upsert(ctx context.Context, item *types.LibraryItem) (*types.LibraryItem, error)
	Get(ctx context.Context, userID, id string) (*types.LibraryItem, error)
	Close() error
}
