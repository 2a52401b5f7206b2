// Package cache provides the read-through response cache sitting in front
// of the catalog database.
//
// Entries are derived, never authoritative: every value is reconstructable
// from the relational store, so cache failures degrade to a database read
// and are logged rather than surfaced to clients.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Cache is a TTL key-value store for serialized responses. Get reports a
// miss for absent, expired and failed lookups alike.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Close() error
}

// ListKey derives the cache key for a book listing from the full
// normalized parameter tuple. The filter strings are client input, so they
// are percent-encoded before joining; a filter containing the delimiter
// characters cannot collide with a different tuple.
func ListKey(search, genre string, cursor int32, limit int) string {
	return fmt.Sprintf("books:list:search=%s:genre=%s:lastId=%d:limit=%d",
		url.QueryEscape(search), url.QueryEscape(genre), cursor, limit)
}

// BookKey derives the cache key for a single-book response.
func BookKey(id int32) string {
	return fmt.Sprintf("books:id:%d", id)
}
